// Package archive keeps a copy of every completed draw in MongoDB for
// audit. Documents expire after the configured retention.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "keno_draws"

// DrawRecord is the archived form of a completed game.
type DrawRecord struct {
	GameID       int64     `bson:"game_id" json:"gameId"`
	GameNumber   int64     `bson:"game_number" json:"gameNumber"`
	DrawnNumbers []int     `bson:"drawn_numbers" json:"drawnNumbers"`
	CompletedAt  time.Time `bson:"completed_at" json:"completedAt"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expiresAt"`
}

// Store is the part of *mongo.Collection the archive uses.
type Store interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Archive records GameCompleted events. Writes are queued and performed
// by Run so the game cycle never waits on Mongo.
type Archive struct {
	coll      Store
	retention time.Duration
	queue     chan DrawRecord
	now       func() time.Time
}

func New(coll Store, retention time.Duration) *Archive {
	return &Archive{
		coll:      coll,
		retention: retention,
		queue:     make(chan DrawRecord, 64),
		now:       time.Now,
	}
}

func (a *Archive) GameState(comm.GameState) {}
func (a *Archive) DrawingStarted(comm.DrawingStarted) {}
func (a *Archive) NumberDrawn(comm.NumberDrawn) {}

func (a *Archive) GameCompleted(ev comm.GameCompleted) {
	rec := a.record(ev)
	select {
	case a.queue <- rec:
	default:
		log.WithField("game_id", ev.GameID).Warn("draw archive queue full, record dropped")
	}
}

func (a *Archive) record(ev comm.GameCompleted) DrawRecord {
	now := a.now().UTC()
	return DrawRecord{
		GameID:       ev.GameID,
		GameNumber:   ev.GameNumber,
		DrawnNumbers: append([]int(nil), ev.DrawnNumbers...),
		CompletedAt:  now,
		ExpiresAt:    now.Add(a.retention),
	}
}

// Run writes queued records until ctx is done, then flushes what is left.
func (a *Archive) Run(ctx context.Context) {
	for {
		select {
		case rec := <-a.queue:
			a.insert(ctx, rec)
		case <-ctx.Done():
			a.flush()
			return
		}
	}
}

func (a *Archive) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case rec := <-a.queue:
			a.insert(ctx, rec)
		default:
			return
		}
	}
}

func (a *Archive) insert(ctx context.Context, rec DrawRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := a.coll.InsertOne(ctx, rec); err != nil {
		log.WithField("game_id", rec.GameID).Errorf("archive draw: %v", err)
	}
}

// Recent returns up to limit archived draws, newest first.
func (a *Archive) Recent(ctx context.Context, limit int64) ([]DrawRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find archived draws: %w", err)
	}
	defer cur.Close(ctx)

	out := []DrawRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode archived draws: %w", err)
	}
	return out, nil
}
