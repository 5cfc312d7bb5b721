package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	chatservice "mboa/contexts/community-experience/chat-service"
	chatmemory "mboa/contexts/community-experience/chat-service/adapters/memory"
	chatpostgres "mboa/contexts/community-experience/chat-service/adapters/postgres"
	presenceservice "mboa/contexts/community-experience/presence-service"
	statusservice "mboa/contexts/community-experience/status-service"
	statusmemory "mboa/contexts/community-experience/status-service/adapters/memory"
	statuspostgres "mboa/contexts/community-experience/status-service/adapters/postgres"
	statusapplication "mboa/contexts/community-experience/status-service/application"
	challengeservice "mboa/contexts/lottery-games/challenge-service"
	chalmemory "mboa/contexts/lottery-games/challenge-service/adapters/memory"
	chalpostgres "mboa/contexts/lottery-games/challenge-service/adapters/postgres"
	tombolaservice "mboa/contexts/lottery-games/tombola-service"
	tombmemory "mboa/contexts/lottery-games/tombola-service/adapters/memory"
	tombpostgres "mboa/contexts/lottery-games/tombola-service/adapters/postgres"
	"mboa/internal/platform/clients"
	"mboa/internal/platform/config"
	"mboa/internal/platform/db"
	"mboa/internal/platform/httpserver"
	"mboa/internal/platform/opsalert"
	"mboa/internal/platform/realtime"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

// idempotencyTTL bounds how long replayed send-message keys keep returning
// the stored first response.
const idempotencyTTL = 7 * 24 * time.Hour

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	presence presenceservice.Module
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	reaper   statusapplication.Reaper
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	directory := clients.NewDirectory(clients.Config{BaseURL: cfg.DirectoryBaseURL, Secret: cfg.ServiceSecret})
	payments := clients.NewPayments(clients.Config{BaseURL: cfg.PaymentsBaseURL, Secret: cfg.ServiceSecret})
	storage := clients.NewStorage(clients.Config{BaseURL: cfg.StorageBaseURL, Secret: cfg.ServiceSecret})
	notifier := clients.NewNotifier(clients.Config{BaseURL: cfg.NotifierBaseURL, Secret: cfg.ServiceSecret})
	moderation := clients.NewModeration(
		cfg.ModerationProvider,
		cfg.ModerationBlockThreshold,
		cfg.ModerationWarnThreshold,
		clients.Config{BaseURL: cfg.ModerationBaseURL, Secret: cfg.ServiceSecret},
	)
	ops := opsalert.New(cfg.SlackToken, cfg.SlackOpsChannel, logger)
	bus := realtime.NewBus(logger)

	chatDeps := chatservice.Dependencies{
		Directory:        chatDirectory{client: directory},
		Storage:          chatStorage{client: storage},
		Events:           bus,
		MaxContentLength: cfg.MessageMaxContentLen,
		SignedURLExpiry:  clients.DefaultSignedURLExpiry,
		StorageBucket:    cfg.StorageBucket,
		IdempotencyTTL:   idempotencyTTL,
		Logger:           logger,
	}
	statusDeps := statusservice.Dependencies{
		Directory:        statusDirectory{client: directory},
		Storage:          statusStorage{client: storage},
		Moderation:       statusModeration{client: moderation},
		Events:           bus,
		MaxContentLength: cfg.StatusMaxContentLength,
		MaxVideoSeconds:  cfg.StatusVideoMaxSeconds,
		ExpiryTTL:        time.Duration(cfg.StatusExpiryHours) * time.Hour,
		SignedURLExpiry:  clients.DefaultSignedURLExpiry,
		StorageBucket:    cfg.StorageBucket,
		Logger:           logger,
	}
	tombolaDeps := tombolaservice.Dependencies{
		Payments:          tombolaPayments{client: payments},
		Notifier:          tombolaNotifier{client: notifier},
		Ops:               ops,
		TicketPrice:       cfg.TicketPriceFCFA,
		MaxTicketsPerUser: cfg.MaxTicketsPerUserPerMonth,
		Logger:            logger,
	}
	challengeDeps := challengeservice.Dependencies{
		Payments:             challengePayments{client: payments},
		Ops:                  ops,
		MaxEntrepreneurs:     cfg.MaxEntrepreneursPerChall,
		VideoMaxSeconds:      cfg.EntrepreneurVideoMaxSeconds,
		VotePrice:            cfg.VotePriceFCFA,
		LotteryPoolAccountID: cfg.LotteryPoolAccountID,
		CommissionAccountID:  cfg.CommissionAccountID,
		Logger:               logger,
	}

	var pg *db.Postgres
	if cfg.UseInMemory {
		chatStore := chatmemory.NewStore()
		chatDeps.Repo, chatDeps.Idempotency = chatStore, chatStore
		chatDeps.Clock, chatDeps.IDGen = chatStore, chatStore

		statusStore := statusmemory.NewStore()
		statusDeps.Repo = statusStore
		statusDeps.Clock, statusDeps.IDGen = statusStore, statusStore

		tombolaStore := tombmemory.NewStore()
		tombolaDeps.Repo = tombolaStore
		tombolaDeps.Clock, tombolaDeps.IDGen = tombolaStore, tombolaStore

		challengeStore := chalmemory.NewStore()
		challengeDeps.Repo = challengeStore
		challengeDeps.Clock, challengeDeps.IDGen = challengeStore, challengeStore
	} else {
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("DATABASE_URL is required (or set USE_IN_MEMORY=true)")
		}
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		models := chatpostgres.Models()
		models = append(models, statuspostgres.Models()...)
		models = append(models, tombpostgres.Models()...)
		models = append(models, chalpostgres.Models()...)
		if err := pg.Migrate(models...); err != nil {
			_ = pg.Close()
			return nil, err
		}

		chatRepo := chatpostgres.NewRepository(pg.DB, logger)
		chatDeps.Repo, chatDeps.Idempotency = chatRepo, chatRepo
		chatDeps.Clock, chatDeps.IDGen = chatpostgres.SystemClock{}, chatpostgres.UUIDGenerator{}

		statusDeps.Repo = statuspostgres.NewRepository(pg.DB, logger)
		statusDeps.Clock, statusDeps.IDGen = statuspostgres.SystemClock{}, statuspostgres.UUIDGenerator{}

		tombolaDeps.Repo = tombpostgres.NewRepository(pg.DB, logger)
		tombolaDeps.Clock, tombolaDeps.IDGen = tombpostgres.SystemClock{}, tombpostgres.UUIDGenerator{}

		challengeDeps.Repo = chalpostgres.NewRepository(pg.DB, logger)
		challengeDeps.Clock, challengeDeps.IDGen = chalpostgres.SystemClock{}, chalpostgres.UUIDGenerator{}
	}

	chatModule := chatservice.NewModule(chatDeps)
	statusDeps.Conversations = statusReplyBridge{conversations: chatModule.Conversations}
	statusModule := statusservice.NewModule(statusDeps)
	presenceModule := presenceservice.NewInMemoryModule(logger)
	tombolaModule := tombolaservice.NewModule(tombolaDeps)
	challengeDeps.Tombola = tombolaGateway{months: tombolaModule.Months, tickets: tombolaModule.Tickets}
	challengeModule := challengeservice.NewModule(challengeDeps)

	server := httpserver.New(
		chatModule,
		statusModule,
		presenceModule,
		tombolaModule,
		challengeModule,
		bus,
		cfg.JWTSecret,
		cfg.ServiceSecret,
		logger,
		normalizeAddr(cfg.HTTPAddr),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		presence: presenceModule,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	statuses := statusapplication.StatusService{
		Repo:   statuspostgres.NewRepository(pg.DB, logger),
		Clock:  statuspostgres.SystemClock{},
		Logger: logger,
	}
	return &WorkerApp{
		postgres: pg,
		reaper: statusapplication.Reaper{
			Statuses: statuses,
			Interval: cfg.StatusReaperInterval,
			Logger:   logger,
		},
		logger: logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

// Shutdown drains in-flight HTTP requests; websocket sessions tear down
// through the gateway when the listener closes.
func (a *APIApp) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *APIApp) Close() error {
	if a.presence.Store != nil {
		a.presence.Store.Close()
	}
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"interval", w.reaper.Interval.String(),
	)
	w.reaper.Run(ctx)
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(addr string) string {
	value := strings.TrimSpace(addr)
	if value == "" {
		return ":8080"
	}
	if strings.Contains(value, ":") {
		return value
	}
	return ":" + value
}
