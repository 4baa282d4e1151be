package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/keno-services/configs"
	"github.com/avvvet/keno-services/internal/comm"
	mongodb "github.com/avvvet/keno-services/internal/db"
	"github.com/avvvet/keno-services/internal/kenosvc/archive"
	"github.com/avvvet/keno-services/internal/kenosvc/broker"
	kenoconfig "github.com/avvvet/keno-services/internal/kenosvc/config"
	"github.com/avvvet/keno-services/internal/kenosvc/cycle"
	"github.com/avvvet/keno-services/internal/kenosvc/db"
	"github.com/avvvet/keno-services/internal/kenosvc/draw"
	"github.com/avvvet/keno-services/internal/kenosvc/handlers"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
	"github.com/avvvet/keno-services/internal/kenosvc/store"
	natscli "github.com/avvvet/keno-services/internal/nats"
	wshandlers "github.com/avvvet/keno-services/internal/socketsvc/handlers"
	"github.com/avvvet/keno-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "keno"

// demo account created when running on the in-memory store
const (
	demoUsername = "player1"
	demoBalance  = 124550
)

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := kenoconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instanceId := config.CreateUniqueInstance(SERVICE_NAME)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	table := payout.DefaultTable()
	if cfg.PayoutTableFile != "" {
		table, err = payout.LoadFile(cfg.PayoutTableFile)
		if err != nil {
			log.Fatalf("load payout table: %v", err)
		}
	}
	analyzer := payout.NewAnalyzer(table, cfg.Cycle.DrawSize, cfg.Cycle.UniverseSize, cfg.Bets.MaxSpots)
	payouts := service.NewPayoutService(repo, analyzer, cfg.TargetHouseEdge)
	if n, err := payouts.LoadStored(ctx); err != nil {
		log.Fatalf("load stored payouts: %v", err)
	} else if n > 0 {
		log.Infof("applied %d stored payout entries", n)
	}

	// event sinks
	hub := ws.NewHub(ws.DefaultQueueSize)
	defer hub.Close()

	sinks := []broker.Sink{hub}
	var natsBroker *broker.Broker
	if cfg.NatsURL != "" {
		n, err := natscli.Connect(SERVICE_NAME + "-" + instanceId)
		if err != nil {
			log.Fatalf("unable to connect to NATS server: %v", err)
		}
		defer n.Conn.Drain()
		log.Infof("NATS connection established successfully %s", n.Url)

		natsBroker = broker.NewBroker(n.Conn, nil, nil)
		sinks = append(sinks, natsBroker)
	}

	out := broker.Fanout{broker.NewPublisher(sinks...)}
	var draws *archive.Archive
	if cfg.MongoURI != "" {
		a, disconnect := openArchive(ctx, cfg)
		defer disconnect()
		go a.Run(ctx)
		out = append(out, a)
		draws = a
	}

	// game cycle
	settlement := service.NewSettlementService(repo, table)
	cyc := cycle.New(cfg.Cycle, repo, draw.NewGenerator(), settlement, out)
	bets := service.NewBetService(repo, cyc, cfg.Bets)

	requests := broker.NewBroker(nil, bets, cyc)
	if natsBroker != nil {
		natsBroker.BetService = bets
		natsBroker.State = cyc
		if err := natsBroker.Subscribe(SERVICE_NAME + ".service"); err != nil {
			log.Fatalf("unable to subscribe to keno requests: %v", err)
		}
		defer natsBroker.Unsubscribe()
		requests = natsBroker
	}
	hub.OnMessage = requests.ClientHandler(hub)

	if n, err := cyc.Recover(ctx); err != nil {
		log.Errorf("recover unfinished games: %v", err)
	} else if n > 0 {
		log.Infof("recovered %d unfinished games", n)
	}

	cycleDone := make(chan struct{})
	go func() {
		defer close(cycleDone)
		if err := cyc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("game cycle stopped: %v", err)
		}
	}()

	// http
	snapshot := func() []byte {
		payload, err := broker.Encode(comm.TypeGameState, cyc.Snapshot())
		if err != nil {
			log.Errorf("encode game state: %v", err)
			return nil
		}
		return payload
	}
	wsHandler := wshandlers.NewHandler(SERVICE_NAME, hub, snapshot)

	h := handlers.NewHandler(bets, service.NewGameService(repo), payouts, cyc, wsHandler.HandleWebSocket)
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET_KEY not set, admin routes will reject every token")
	}
	h.InitAuth(cfg.JWTSecret)
	if draws != nil {
		h.UseArchive(draws)
	}

	r := chi.NewRouter()
	c := config.CORS()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h.SetRoutes(r)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown failed: %+v", SERVICE_NAME, err)
	}
	<-cycleDone
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func openRepository(ctx context.Context, cfg kenoconfig.Config) (store.Repository, func()) {
	if cfg.PostgresURL == "" {
		mem := store.NewMemStore()
		if _, err := mem.CreateUser(ctx, demoUsername, demoBalance); err != nil {
			log.Fatalf("seed demo user: %v", err)
		}
		log.Warn("POSTGRES_URL not set, using in-memory store")
		return mem, func() {}
	}

	if err := db.MigrateUp(cfg.PostgresURL); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	pool, err := db.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	log.Info("pg connection established successfully")
	return store.NewPgStore(pool), pool.Close
}

func openArchive(ctx context.Context, cfg kenoconfig.Config) (*archive.Archive, func()) {
	mdb, disconnect, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("connect draw archive: %v", err)
	}
	if err := mongodb.CreateTTLIndexForCollection(ctx, mdb, archive.Collection); err != nil {
		log.Fatalf("create draw archive index: %v", err)
	}
	log.Infof("archiving completed draws to %s.%s", mdb.Name(), archive.Collection)
	return archive.New(mdb.Collection(archive.Collection), cfg.ArchiveTTL), disconnect
}
