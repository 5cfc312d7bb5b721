package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	tombdomainerrors "mboa/contexts/lottery-games/tombola-service/domain/errors"
	tombhttp "mboa/contexts/lottery-games/tombola-service/transport/http"
	"mboa/internal/platform/clients"
)

func (s *Server) registerTombolaRoutes() {
	s.mux.HandleFunc("GET /api/v1/tombolas", s.handleListTombolaMonths)
	s.mux.HandleFunc("GET /api/v1/tombolas/current", s.handleCurrentTombolaMonth)
	s.mux.HandleFunc("POST /api/v1/tombolas/current/buy-ticket", s.handleBuyTombolaTicket)
	s.mux.HandleFunc("GET /api/v1/tombolas/tickets/me", s.handleMyTombolaTickets)
	s.mux.HandleFunc("GET /api/v1/tombolas/{month_id}/winners", s.handleTombolaWinners)
	s.mux.HandleFunc("POST /api/v1/tombolas/webhooks/payment-confirmation", s.handleTombolaPaymentWebhook)

	s.mux.HandleFunc("POST /api/v1/tombolas/admin", s.handleCreateTombolaMonth)
	s.mux.HandleFunc("GET /api/v1/tombolas/admin", s.handleAdminListTombolaMonths)
	s.mux.HandleFunc("GET /api/v1/tombolas/admin/{month_id}", s.handleAdminGetTombolaMonth)
	s.mux.HandleFunc("PATCH /api/v1/tombolas/admin/{month_id}", s.handleUpdateTombolaMonth)
	s.mux.HandleFunc("DELETE /api/v1/tombolas/admin/{month_id}", s.handleDeleteTombolaMonth)
	s.mux.HandleFunc("PATCH /api/v1/tombolas/admin/{month_id}/status", s.handleSetTombolaStatus)
	s.mux.HandleFunc("POST /api/v1/tombolas/admin/{month_id}/draw", s.handleDrawTombola)
	s.mux.HandleFunc("GET /api/v1/tombolas/admin/{month_id}/tickets", s.handleTombolaMonthTickets)
	s.mux.HandleFunc("GET /api/v1/tombolas/admin/{month_id}/ticket-numbers", s.handleTombolaTicketNumbers)
}

func (s *Server) handleListTombolaMonths(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.tombola.Handler.ListMonthsHandler(r.Context(), page, limit)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentTombolaMonth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.CurrentMonthHandler(r.Context())
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuyTombolaTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	resp, err := s.tombola.Handler.BuyTicketHandler(r.Context(), identity.UserID)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMyTombolaTickets(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.tombola.Handler.MyTicketsHandler(r.Context(), identity.UserID, page, limit)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTombolaWinners(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.WinnersHandler(r.Context(), r.PathValue("month_id"))
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTombolaPaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.requireService(w, r) {
		return
	}
	var req tombhttp.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.tombola.Handler.PaymentWebhookHandler(r.Context(), req)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTombolaMonth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req tombhttp.CreateMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.tombola.Handler.CreateMonthHandler(r.Context(), req)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAdminListTombolaMonths(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.tombola.Handler.ListMonthsHandler(r.Context(), page, limit)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminGetTombolaMonth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.GetMonthHandler(r.Context(), r.PathValue("month_id"))
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateTombolaMonth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req tombhttp.UpdateMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.tombola.Handler.UpdateMonthHandler(r.Context(), r.PathValue("month_id"), req)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteTombolaMonth(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.DeleteMonthHandler(r.Context(), r.PathValue("month_id"))
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetTombolaStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	var req tombhttp.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := s.tombola.Handler.SetStatusHandler(r.Context(), r.PathValue("month_id"), req)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDrawTombola(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.DrawHandler(r.Context(), r.PathValue("month_id"))
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTombolaMonthTickets(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	page, limit, ok := parsePagination(w, r)
	if !ok {
		return
	}
	resp, err := s.tombola.Handler.MonthTicketsHandler(r.Context(), r.PathValue("month_id"), page, limit)
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTombolaTicketNumbers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireAdmin(w, r); !ok {
		return
	}
	resp, err := s.tombola.Handler.TicketNumbersHandler(r.Context(), r.PathValue("month_id"))
	if err != nil {
		writeTombolaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeTombolaDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tombdomainerrors.ErrInvalidRequest),
		errors.Is(err, tombdomainerrors.ErrMonthInFuture),
		errors.Is(err, tombdomainerrors.ErrDrawNotAllowed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tombdomainerrors.ErrMonthNotFound),
		errors.Is(err, tombdomainerrors.ErrTicketNotFound),
		errors.Is(err, tombdomainerrors.ErrNoOpenMonth):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tombdomainerrors.ErrTicketCapReached),
		errors.Is(err, tombdomainerrors.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, tombdomainerrors.ErrMonthExists),
		errors.Is(err, tombdomainerrors.ErrMonthHasTickets),
		errors.Is(err, tombdomainerrors.ErrAlreadyDrawn),
		errors.Is(err, tombdomainerrors.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, clients.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
