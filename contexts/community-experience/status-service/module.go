package statusservice

import (
	"log/slog"
	"time"

	httpadapter "mboa/contexts/community-experience/status-service/adapters/http"
	"mboa/contexts/community-experience/status-service/adapters/memory"
	"mboa/contexts/community-experience/status-service/application"
	"mboa/contexts/community-experience/status-service/ports"
)

type Module struct {
	Handler      httpadapter.Handler
	Statuses     application.StatusService
	Interactions application.InteractionService
	Store        *memory.Store
}

type Dependencies struct {
	Repo             ports.Repository
	Directory        ports.DirectoryClient
	Storage          ports.StorageClient
	Moderation       ports.ModerationClient
	Conversations    ports.ConversationBridge
	Events           ports.EventPublisher
	Clock            ports.Clock
	IDGen            ports.IDGenerator
	MaxContentLength int
	MaxVideoSeconds  int
	ExpiryTTL        time.Duration
	SignedURLExpiry  time.Duration
	StorageBucket    string
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	statuses := application.StatusService{
		Repo:             deps.Repo,
		Directory:        deps.Directory,
		Storage:          deps.Storage,
		Moderation:       deps.Moderation,
		Events:           deps.Events,
		Clock:            deps.Clock,
		IDGen:            deps.IDGen,
		Logger:           deps.Logger,
		MaxContentLength: deps.MaxContentLength,
		MaxVideoSeconds:  deps.MaxVideoSeconds,
		ExpiryTTL:        deps.ExpiryTTL,
		SignedURLExpiry:  deps.SignedURLExpiry,
		StorageBucket:    deps.StorageBucket,
	}
	interactions := application.InteractionService{
		Repo:          deps.Repo,
		Directory:     deps.Directory,
		Conversations: deps.Conversations,
		Events:        deps.Events,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Statuses:     statuses,
			Interactions: interactions,
			Logger:       deps.Logger,
		},
		Statuses:     statuses,
		Interactions: interactions,
	}
}

func NewInMemoryModule(
	directory ports.DirectoryClient,
	storage ports.StorageClient,
	moderation ports.ModerationClient,
	conversations ports.ConversationBridge,
	events ports.EventPublisher,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:          store,
		Directory:     directory,
		Storage:       storage,
		Moderation:    moderation,
		Conversations: conversations,
		Events:        events,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
