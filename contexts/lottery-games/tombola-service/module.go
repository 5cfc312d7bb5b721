package tombolaservice

import (
	"log/slog"

	httpadapter "mboa/contexts/lottery-games/tombola-service/adapters/http"
	"mboa/contexts/lottery-games/tombola-service/adapters/memory"
	"mboa/contexts/lottery-games/tombola-service/application"
	"mboa/contexts/lottery-games/tombola-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Months  application.MonthService
	Tickets application.TicketService
	Store   *memory.Store
}

type Dependencies struct {
	Repo     ports.Repository
	Payments ports.PaymentsClient
	Notifier ports.NotifierClient
	Ops      ports.OpsAlerter
	Clock    ports.Clock
	IDGen    ports.IDGenerator

	TicketPrice       int64
	MaxTicketsPerUser int
	Currency          string
	CallbackPath      string

	// Uniform overrides the draw's randomness source; nil uses math/rand.
	Uniform func(total float64) float64

	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	months := application.MonthService{
		Repo:     deps.Repo,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Notifier: deps.Notifier,
		Ops:      deps.Ops,
		Logger:   deps.Logger,
		Uniform:  deps.Uniform,
	}
	tickets := application.TicketService{
		Repo:              deps.Repo,
		Payments:          deps.Payments,
		Clock:             deps.Clock,
		IDGen:             deps.IDGen,
		Ops:               deps.Ops,
		Logger:            deps.Logger,
		TicketPrice:       deps.TicketPrice,
		MaxTicketsPerUser: deps.MaxTicketsPerUser,
		Currency:          deps.Currency,
		CallbackPath:      deps.CallbackPath,
	}
	return Module{
		Handler: httpadapter.Handler{Months: months, Tickets: tickets, Logger: deps.Logger},
		Months:  months,
		Tickets: tickets,
	}
}

func NewInMemoryModule(
	payments ports.PaymentsClient,
	notifier ports.NotifierClient,
	ops ports.OpsAlerter,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:     store,
		Payments: payments,
		Notifier: notifier,
		Ops:      ops,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
