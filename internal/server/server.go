package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lameck-sudo/aviator-game/internal/cache"
	"github.com/lameck-sudo/aviator-game/internal/config"
	"github.com/lameck-sudo/aviator-game/internal/database"
	"github.com/lameck-sudo/aviator-game/internal/game"
	"github.com/lameck-sudo/aviator-game/internal/recorder"
	"github.com/lameck-sudo/aviator-game/internal/rng"
)

// MIGRATIONS_PATH is where New looks for the Postgres schema.
var MIGRATIONS_PATH = "./migrations"

// roundArchive is the read side of the round archive (Postgres or SQLite).
type roundArchive interface {
	RecentRounds(ctx context.Context, limit uint64) ([]game.RoundRecord, error)
	ParticipantBets(ctx context.Context, participantID string, limit uint64) ([]game.BetRecord, error)
}

type FiberServer struct {
	*fiber.App

	cfg      config.Config
	db       database.Service
	cache    cache.Service
	recorder recorder.Recorder
	archive  roundArchive

	retention   *recorder.Retention
	gameManager *game.Manager
	gameHub     *game.Hub
	registry    *prometheus.Registry

	// revealed on Close so the commitment can be checked
	seed uint32
	salt string
}

// New wires the game to whatever backends are configured. Redis holds balances and
// history when reachable, otherwise an in-memory ledger is used. Rounds are archived
// to Postgres when BLUEPRINT_DB_HOST is set, else to SQLite when a path is configured.
func New(ctx context.Context, cfg config.Config) (*FiberServer, error) {
	seed, err := cfg.ResolveSeed()
	if err != nil {
		return nil, err
	}
	salt, err := game.NewSalt()
	if err != nil {
		return nil, err
	}
	commitment := game.SeedCommitment(salt, seed)
	log.Printf("[SERVER] Seed commitment: %s", commitment)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := game.NewHub()
	opts := []game.Option{game.WithMetrics(game.NewMetrics(registry))}

	var ledger game.Ledger = game.NewMemoryLedger()
	redisService, err := cache.New(ctx, cache.OptionsFromEnv())
	if err != nil {
		log.Printf("[SERVER] Redis unavailable, balances and history stay in memory: %v", err)
		redisService = nil
	} else {
		ledger = redisService.Ledger()
		opts = append(opts, game.WithHistoryStore(redisService.History()))
	}

	var (
		db      database.Service
		archive roundArchive
		rec     recorder.Recorder = recorder.NewNoopRecorder()
		pruner  recorder.Pruner   = recorder.NewNoopRecorder()
	)
	switch {
	case database.Configured():
		db, err = database.New()
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.RunMigrations(db.DB(), MIGRATIONS_PATH); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pg := database.NewArchive(db.DB())
		opts = append(opts, game.WithArchive(pg))
		archive, pruner = pg, pg
	case cfg.SQLitePath != "":
		sqlite, err := recorder.NewSQLiteRecorder(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		rec, pruner, archive = sqlite, sqlite, sqlite
		opts = append(opts, game.WithArchive(sqlite))
	}

	var retention *recorder.Retention
	if cfg.RetentionDays > 0 {
		retention, err = recorder.NewRetention(pruner, cfg.RetentionCron, cfg.Retention())
		if err != nil {
			return nil, err
		}
	}

	manager, err := game.NewManager(cfg.ManagerConfig(commitment), rng.New(seed), ledger, hub, opts...)
	if err != nil {
		return nil, err
	}

	s := newFiberServer(manager, hub, registry)
	s.cfg = cfg
	s.db = db
	s.cache = redisService
	s.recorder = rec
	s.archive = archive
	s.retention = retention
	s.seed, s.salt = seed, salt
	return s, nil
}

func newFiberServer(manager *game.Manager, hub *game.Hub, registry *prometheus.Registry) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "aviator",
			AppName:       "aviator",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),
		gameManager: manager,
		gameHub:     hub,
		registry:    registry,
		recorder:    recorder.NewNoopRecorder(),
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	return server
}

// Start launches the hub, the game loop and the retention schedule.
func (s *FiberServer) Start(ctx context.Context) {
	go s.gameHub.Run()
	s.gameManager.Start(ctx)
	if s.retention != nil {
		s.retention.Start()
	}
	log.Println("[SERVER] Game manager started")
}

// Close stops the game and releases the backends.
func (s *FiberServer) Close() error {
	log.Println("[SERVER] Shutting down...")

	s.gameManager.Stop()
	s.gameHub.Stop()
	if s.salt != "" {
		log.Printf("[SERVER] Seed reveal: seed=%d salt=%s commitment=%s", s.seed, s.salt, s.gameManager.SeedCommitment())
	}
	if s.retention != nil {
		s.retention.Stop()
	}

	if err := s.recorder.Close(); err != nil {
		log.Printf("[SERVER] Error closing recorder: %v", err)
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}
