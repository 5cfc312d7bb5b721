package chatservice

import (
	"log/slog"
	"time"

	httpadapter "mboa/contexts/community-experience/chat-service/adapters/http"
	"mboa/contexts/community-experience/chat-service/adapters/memory"
	"mboa/contexts/community-experience/chat-service/application"
	"mboa/contexts/community-experience/chat-service/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	Conversations application.ConversationService
	Messages      application.MessageService
	Store         *memory.Store
}

type Dependencies struct {
	Repo             ports.Repository
	Idempotency      ports.IdempotencyStore
	Directory        ports.DirectoryClient
	Storage          ports.StorageClient
	Events           ports.EventPublisher
	Clock            ports.Clock
	IDGen            ports.IDGenerator
	MaxContentLength int
	SignedURLExpiry  time.Duration
	StorageBucket    string
	IdempotencyTTL   time.Duration
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	conversations := application.ConversationService{
		Repo:      deps.Repo,
		Directory: deps.Directory,
		Events:    deps.Events,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	messages := application.MessageService{
		Repo:             deps.Repo,
		Conversations:    conversations,
		Storage:          deps.Storage,
		Directory:        deps.Directory,
		Idempotency:      deps.Idempotency,
		Events:           deps.Events,
		Clock:            deps.Clock,
		IDGen:            deps.IDGen,
		Logger:           deps.Logger,
		MaxContentLength: deps.MaxContentLength,
		SignedURLExpiry:  deps.SignedURLExpiry,
		StorageBucket:    deps.StorageBucket,
		IdempotencyTTL:   deps.IdempotencyTTL,
	}
	return Module{
		Handler: httpadapter.Handler{
			Conversations: conversations,
			Messages:      messages,
			Logger:        deps.Logger,
		},
		Conversations: conversations,
		Messages:      messages,
	}
}

func NewInMemoryModule(
	directory ports.DirectoryClient,
	storage ports.StorageClient,
	events ports.EventPublisher,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:           store,
		Idempotency:    store,
		Directory:      directory,
		Storage:        storage,
		Events:         events,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
