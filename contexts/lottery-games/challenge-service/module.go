package challengeservice

import (
	"log/slog"

	httpadapter "mboa/contexts/lottery-games/challenge-service/adapters/http"
	"mboa/contexts/lottery-games/challenge-service/adapters/memory"
	"mboa/contexts/lottery-games/challenge-service/application"
	"mboa/contexts/lottery-games/challenge-service/ports"
)

type Module struct {
	Handler    httpadapter.Handler
	Challenges application.ChallengeService
	Votes      application.VoteService
	Store      *memory.Store
}

type Dependencies struct {
	Repo     ports.Repository
	Tombola  ports.TombolaGateway
	Payments ports.PaymentsClient
	Ops      ports.OpsAlerter
	Clock    ports.Clock
	IDGen    ports.IDGenerator

	MaxEntrepreneurs     int
	VideoMaxSeconds      int
	VotePrice            int64
	Currency             string
	CallbackPath         string
	LotteryPoolAccountID string
	CommissionAccountID  string

	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	challenges := application.ChallengeService{
		Repo:                 deps.Repo,
		Tombola:              deps.Tombola,
		Payments:             deps.Payments,
		Ops:                  deps.Ops,
		Clock:                deps.Clock,
		IDGen:                deps.IDGen,
		Logger:               deps.Logger,
		MaxEntrepreneurs:     deps.MaxEntrepreneurs,
		VideoMaxSeconds:      deps.VideoMaxSeconds,
		Currency:             deps.Currency,
		LotteryPoolAccountID: deps.LotteryPoolAccountID,
		CommissionAccountID:  deps.CommissionAccountID,
	}
	votes := application.VoteService{
		Repo:         deps.Repo,
		Tombola:      deps.Tombola,
		Payments:     deps.Payments,
		Ops:          deps.Ops,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		Logger:       deps.Logger,
		VotePrice:    deps.VotePrice,
		Currency:     deps.Currency,
		CallbackPath: deps.CallbackPath,
	}
	return Module{
		Handler:    httpadapter.Handler{Challenges: challenges, Votes: votes, Logger: deps.Logger},
		Challenges: challenges,
		Votes:      votes,
	}
}

func NewInMemoryModule(
	tombola ports.TombolaGateway,
	payments ports.PaymentsClient,
	ops ports.OpsAlerter,
	logger *slog.Logger,
) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:     store,
		Tombola:  tombola,
		Payments: payments,
		Ops:      ops,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
