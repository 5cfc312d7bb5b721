package presenceservice

import (
	"log/slog"
	"time"

	"mboa/contexts/community-experience/presence-service/adapters/memory"
	"mboa/contexts/community-experience/presence-service/application"
	"mboa/contexts/community-experience/presence-service/ports"
)

type Module struct {
	Presence application.PresenceService

	// Store is set when the module owns an in-process KV; the bootstrap
	// closes it on shutdown.
	Store *memory.Store
}

type Dependencies struct {
	KV        ports.KV
	OnlineTTL time.Duration
	TypingTTL time.Duration
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Presence: application.PresenceService{
			Store:     deps.KV,
			Logger:    deps.Logger,
			OnlineTTL: deps.OnlineTTL,
			TypingTTL: deps.TypingTTL,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{KV: store, Logger: logger})
	module.Store = store
	return module
}
