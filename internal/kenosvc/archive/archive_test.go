package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCollection struct {
	mu       sync.Mutex
	docs     []DrawRecord
	err      error
	lastFind *options.FindOptions
}

func (f *fakeCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, document.(DrawRecord))
	return &mongo.InsertOneResult{}, nil
}

// Find returns the stored documents newest first, honouring the limit.
func (f *fakeCollection) Find(_ context.Context, _ interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	merged := options.MergeFindOptions(opts...)
	f.lastFind = merged

	var docs []interface{}
	for i := len(f.docs) - 1; i >= 0; i-- {
		if merged.Limit != nil && int64(len(docs)) == *merged.Limit {
			break
		}
		docs = append(docs, f.docs[i])
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeCollection) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func TestArchive_RecordsCompletedGames(t *testing.T) {
	coll := &fakeCollection{}
	a := New(coll, 24*time.Hour)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	a.DrawingStarted(comm.DrawingStarted{GameID: 1})
	a.NumberDrawn(comm.NumberDrawn{Number: 5, Index: 1, Total: 20})
	a.GameCompleted(comm.GameCompleted{GameID: 1, GameNumber: 1247, DrawnNumbers: []int{5, 6, 7}})

	require.Eventually(t, func() bool { return coll.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	rec := coll.docs[0]
	assert.Equal(t, int64(1247), rec.GameNumber)
	assert.Equal(t, []int{5, 6, 7}, rec.DrawnNumbers)
	assert.Equal(t, fixed, rec.CompletedAt)
	assert.Equal(t, fixed.Add(24*time.Hour), rec.ExpiresAt)
}

func TestArchive_FlushesOnShutdown(t *testing.T) {
	coll := &fakeCollection{}
	a := New(coll, time.Hour)

	a.GameCompleted(comm.GameCompleted{GameID: 1})
	a.GameCompleted(comm.GameCompleted{GameID: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	assert.Equal(t, 2, coll.count())
}

func TestArchive_InsertErrorDoesNotStop(t *testing.T) {
	coll := &fakeCollection{err: errors.New("mongo down")}
	a := New(coll, time.Hour)
	a.GameCompleted(comm.GameCompleted{GameID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { a.Run(ctx) })
	assert.Equal(t, 0, coll.count())
}

func TestArchive_DropsWhenQueueFull(t *testing.T) {
	a := New(&fakeCollection{}, time.Hour)
	for i := 0; i < cap(a.queue)+10; i++ {
		a.GameCompleted(comm.GameCompleted{GameID: int64(i)})
	}
	assert.Len(t, a.queue, cap(a.queue))
}

func TestArchive_RecentNewestFirst(t *testing.T) {
	coll := &fakeCollection{}
	a := New(coll, time.Hour)
	base := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		a.now = func() time.Time { return at }
		a.insert(context.Background(), a.record(comm.GameCompleted{GameID: int64(i + 1), GameNumber: int64(1247 + i), DrawnNumbers: []int{i + 1}}))
	}

	recs, err := a.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(3), recs[0].GameID)
	assert.Equal(t, int64(2), recs[1].GameID)
	assert.Equal(t, []int{3}, recs[0].DrawnNumbers)
	assert.True(t, base.Add(2*time.Minute).Equal(recs[0].CompletedAt))

	require.NotNil(t, coll.lastFind.Limit)
	assert.Equal(t, int64(2), *coll.lastFind.Limit)
	assert.Equal(t, bson.D{{Key: "completed_at", Value: -1}}, coll.lastFind.Sort)
}

func TestArchive_RecentError(t *testing.T) {
	a := New(&fakeCollection{err: errors.New("mongo down")}, time.Hour)
	_, err := a.Recent(context.Background(), 10)
	assert.ErrorContains(t, err, "mongo down")
}
