package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	chaldomainerrors "mboa/contexts/lottery-games/challenge-service/domain/errors"
	chalhttp "mboa/contexts/lottery-games/challenge-service/transport/http"
	"mboa/internal/platform/clients"
)

func (s *Server) registerChallengeRoutes() {
	s.mux.HandleFunc("GET /api/v1/challenges/current", s.handleCurrentChallenge)
	s.mux.HandleFunc("GET /api/v1/challenges/{challenge_id}", s.handleGetChallenge)
	s.mux.HandleFunc("GET /api/v1/challenges/{challenge_id}/entrepreneurs", s.handleChallengeEntrepreneurs)
	s.mux.HandleFunc("GET /api/v1/challenges/{challenge_id}/leaderboard", s.handleChallengeLeaderboard)
	s.mux.HandleFunc("POST /api/v1/challenges/{challenge_id}/vote", s.handleChallengeVote)
	s.mux.HandleFunc("POST /api/v1/challenges/{challenge_id}/support", s.handleChallengeSupport)
	s.mux.HandleFunc("GET /api/v1/challenges/{challenge_id}/ticket-allowance", s.handleTicketAllowance)
	s.mux.HandleFunc("POST /api/v1/challenges/webhooks/payment-confirmation", s.handleChallengePaymentWebhook)

	s.mux.HandleFunc("POST /api/v1/challenges/admin", s.handleCreateChallenge)
	s.mux.HandleFunc("GET /api/v1/challenges/admin", s.handleListChallenges)
	s.mux.HandleFunc("GET /api/v1/challenges/admin/{challenge_id}", s.handleAdminGetChallenge)
	s.mux.HandleFunc("PATCH /api/v1/challenges/admin/{challenge_id}", s.handleUpdateChallenge)
	s.mux.HandleFunc("DELETE /api/v1/challenges/admin/{challenge_id}", s.handleDeleteChallenge)
	s.mux.HandleFunc("PATCH /api/v1/challenges/admin/{challenge_id}/status", s.handleSetChallengeStatus)
	s.mux.HandleFunc("POST /api/v1/challenges/admin/{challenge_id}/entrepreneurs", s.handleAddEntrepreneur)
	s.mux.HandleFunc("GET /api/v1/challenges/admin/{challenge_id}/entrepreneurs", s.handleAdminChallengeEntrepreneurs)
	s.mux.HandleFunc("PATCH /api/v1/challenges/admin/entrepreneurs/{entrepreneur_id}", s.handleUpdateEntrepreneur)
	s.mux.HandleFunc("POST /api/v1/challenges/admin/entrepreneurs/{entrepreneur_id}/approve", s.handleApproveEntrepreneur)
	s.mux.HandleFunc("DELETE /api/v1/challenges/admin/entrepreneurs/{entrepreneur_id}", s.handleDeleteEntrepreneur)
	s.mux.HandleFunc("POST /api/v1/challenges/admin/{challenge_id}/close-voting", s.handleCloseVoting)
	s.mux.HandleFunc("POST /api/v1/challenges/admin/{challenge_id}/distribute-funds", s.handleDistributeFunds)
	s.mux.HandleFunc("GET /api/v1/challenges/admin/{challenge_id}/fund-summary", s.handleChallengeFundSummary)
	s.mux.HandleFunc("GET /api/v1/challenges/admin/{challenge_id}/analytics", s.handleChallengeAnalytics)
	s.mux.HandleFunc("GET /api/v1/challenges/admin/{challenge_id}/votes", s.handleChallengeVotes)
}

func (s *Server) handleCurrentChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.CurrentChallengeHandler(r.Context())
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.GetChallengeHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeEntrepreneurs(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.EntrepreneursHandler(r.Context(), r.PathValue("challenge_id"), false)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.LeaderboardHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeVote(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req chalhttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.VoteHandler(r.Context(), identity.UserID, r.PathValue("challenge_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChallengeSupport accepts anonymous contributions: a bearer token
// is honored when present but not required.
func (s *Server) handleChallengeSupport(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.optionalUser(w, r)
	if !ok {
		return
	}
	var req chalhttp.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.SupportHandler(r.Context(), identity.UserID, r.PathValue("challenge_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTicketAllowance(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.challenges.Handler.TicketAllowanceHandler(r.Context(), identity.UserID, r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.requireService(w, r) {
		return
	}
	var req chalhttp.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.PaymentWebhookHandler(r.Context(), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req chalhttp.CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.CreateChallengeHandler(r.Context(), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.challenges.Handler.ListChallengesHandler(r.Context(), page, limit)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminGetChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.GetChallengeHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req chalhttp.UpdateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.UpdateChallengeHandler(r.Context(), r.PathValue("challenge_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.DeleteChallengeHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetChallengeStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req chalhttp.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.SetStatusHandler(r.Context(), r.PathValue("challenge_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddEntrepreneur(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req chalhttp.AddEntrepreneurRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.AddEntrepreneurHandler(r.Context(), r.PathValue("challenge_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAdminChallengeEntrepreneurs(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.EntrepreneursHandler(r.Context(), r.PathValue("challenge_id"), true)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateEntrepreneur(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req chalhttp.UpdateEntrepreneurRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.challenges.Handler.UpdateEntrepreneurHandler(r.Context(), r.PathValue("entrepreneur_id"), req)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApproveEntrepreneur(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.ApproveEntrepreneurHandler(r.Context(), r.PathValue("entrepreneur_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteEntrepreneur(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.DeleteEntrepreneurHandler(r.Context(), r.PathValue("entrepreneur_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.CloseVotingHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistributeFunds(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.DistributeFundsHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeFundSummary(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.FundSummaryHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeAnalytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.challenges.Handler.AnalyticsHandler(r.Context(), r.PathValue("challenge_id"))
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChallengeVotes(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.challenges.Handler.VotesHandler(r.Context(), r.PathValue("challenge_id"), page, limit)
	if err != nil {
		writeChallengeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeChallengeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chaldomainerrors.ErrInvalidRequest),
		errors.Is(err, chaldomainerrors.ErrVoteAmountInvalid),
		errors.Is(err, chaldomainerrors.ErrVideoTooLong),
		errors.Is(err, chaldomainerrors.ErrInvalidTransition),
		errors.Is(err, chaldomainerrors.ErrChallengeNotActive),
		errors.Is(err, chaldomainerrors.ErrChallengeNotDeletable),
		errors.Is(err, chaldomainerrors.ErrEntrepreneurHasVotes),
		errors.Is(err, chaldomainerrors.ErrNoWinner):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chaldomainerrors.ErrChallengeNotFound),
		errors.Is(err, chaldomainerrors.ErrEntrepreneurNotFound),
		errors.Is(err, chaldomainerrors.ErrVoteNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chaldomainerrors.ErrTicketAllowanceExhausted),
		errors.Is(err, chaldomainerrors.ErrEntrepreneurNotApproved),
		errors.Is(err, chaldomainerrors.ErrEntrepreneurMismatch),
		errors.Is(err, chaldomainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, chaldomainerrors.ErrChallengeExists),
		errors.Is(err, chaldomainerrors.ErrRosterFull),
		errors.Is(err, chaldomainerrors.ErrFundsAlreadyDistributed),
		errors.Is(err, chaldomainerrors.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chaldomainerrors.ErrPayoutAccountsMissing):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, clients.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
