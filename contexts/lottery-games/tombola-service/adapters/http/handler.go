package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"mboa/contexts/lottery-games/tombola-service/application"
	"mboa/contexts/lottery-games/tombola-service/domain/entities"
	"mboa/contexts/lottery-games/tombola-service/ports"
	httptransport "mboa/contexts/lottery-games/tombola-service/transport/http"
)

type Handler struct {
	Months  application.MonthService
	Tickets application.TicketService
	Logger  *slog.Logger
}

func (h Handler) ListMonthsHandler(ctx context.Context, page int, limit int) (httptransport.MonthListResponse, error) {
	months, total, err := h.Months.List(ctx, page, limit)
	if err != nil {
		return httptransport.MonthListResponse{}, err
	}
	resp := httptransport.MonthListResponse{Success: true}
	resp.Data = make([]httptransport.MonthDTO, 0, len(months))
	for _, month := range months {
		resp.Data = append(resp.Data, toMonthDTO(month))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 20), total)
	return resp, nil
}

func (h Handler) CurrentMonthHandler(ctx context.Context) (httptransport.MonthResponse, error) {
	month, err := h.Months.Current(ctx)
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{Success: true, Data: toMonthDTO(month)}, nil
}

func (h Handler) GetMonthHandler(ctx context.Context, monthID string) (httptransport.MonthResponse, error) {
	month, err := h.Months.Get(ctx, monthID)
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{Success: true, Data: toMonthDTO(month)}, nil
}

func (h Handler) WinnersHandler(ctx context.Context, monthID string) (httptransport.WinnersResponse, error) {
	winners, err := h.Months.Winners(ctx, monthID)
	if err != nil {
		return httptransport.WinnersResponse{}, err
	}
	resp := httptransport.WinnersResponse{Success: true}
	resp.Data = make([]httptransport.WinnerDTO, 0, len(winners))
	for _, winner := range winners {
		resp.Data = append(resp.Data, toWinnerDTO(winner))
	}
	return resp, nil
}

func (h Handler) BuyTicketHandler(ctx context.Context, userID string) (httptransport.PurchaseResponse, error) {
	session, err := h.Tickets.BuyTicket(ctx, userID)
	if err != nil {
		return httptransport.PurchaseResponse{}, err
	}
	resp := httptransport.PurchaseResponse{Success: true, Message: "Checkout session created"}
	resp.Data.TicketID = session.TicketID
	resp.Data.SessionID = session.SessionID
	resp.Data.CheckoutURL = session.CheckoutURL
	resp.Data.Amount = session.Amount
	resp.Data.Currency = session.Currency
	return resp, nil
}

func (h Handler) MyTicketsHandler(ctx context.Context, userID string, page int, limit int) (httptransport.TicketListResponse, error) {
	tickets, total, err := h.Tickets.MyTickets(ctx, userID, page, limit)
	if err != nil {
		return httptransport.TicketListResponse{}, err
	}
	return ticketListResponse(tickets, page, limit, total, false), nil
}

// PaymentWebhookHandler is the service-authenticated confirmation path for
// direct ticket purchases.
func (h Handler) PaymentWebhookHandler(ctx context.Context, req httptransport.PaymentWebhookRequest) (httptransport.GenericResponse, error) {
	ticket, minted, err := h.Tickets.ConfirmPurchase(ctx, ports.ConfirmPurchaseInput{
		SessionID: req.SessionID,
		Status:    req.Status,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return httptransport.GenericResponse{}, err
	}
	if ticket.TicketID == "" {
		return httptransport.GenericResponse{Success: true, Message: "Ignored"}, nil
	}
	message := "Already processed"
	if minted {
		message = "Ticket created"
	}
	return httptransport.GenericResponse{
		Success: true,
		Message: message,
		Data:    toTicketDTO(ticket, true),
	}, nil
}

func (h Handler) CreateMonthHandler(ctx context.Context, req httptransport.CreateMonthRequest) (httptransport.MonthResponse, error) {
	month, err := h.Months.CreateMonth(ctx, ports.CreateMonthInput{
		Month:             req.Month,
		Year:              req.Year,
		LinkedChallengeID: req.LinkedChallengeID,
	})
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{
		Success: true,
		Message: "Tombola month created",
		Data:    toMonthDTO(month),
	}, nil
}

func (h Handler) UpdateMonthHandler(ctx context.Context, monthID string, req httptransport.UpdateMonthRequest) (httptransport.MonthResponse, error) {
	month, err := h.Months.Update(ctx, ports.UpdateMonthInput{
		MonthID:           monthID,
		LinkedChallengeID: req.LinkedChallengeID,
	})
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{Success: true, Message: "Tombola month updated", Data: toMonthDTO(month)}, nil
}

func (h Handler) DeleteMonthHandler(ctx context.Context, monthID string) (httptransport.GenericResponse, error) {
	if err := h.Months.Delete(ctx, monthID); err != nil {
		return httptransport.GenericResponse{}, err
	}
	return httptransport.GenericResponse{Success: true, Message: "Tombola month deleted"}, nil
}

func (h Handler) SetStatusHandler(ctx context.Context, monthID string, req httptransport.SetStatusRequest) (httptransport.MonthResponse, error) {
	month, err := h.Months.SetStatus(ctx, monthID, entities.MonthStatus(req.Status))
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{Success: true, Message: "Tombola month updated", Data: toMonthDTO(month)}, nil
}

func (h Handler) DrawHandler(ctx context.Context, monthID string) (httptransport.MonthResponse, error) {
	month, err := h.Months.DrawWinners(ctx, monthID)
	if err != nil {
		return httptransport.MonthResponse{}, err
	}
	return httptransport.MonthResponse{Success: true, Message: "Draw completed", Data: toMonthDTO(month)}, nil
}

func (h Handler) MonthTicketsHandler(ctx context.Context, monthID string, page int, limit int) (httptransport.TicketListResponse, error) {
	tickets, total, err := h.Tickets.TicketsOfMonth(ctx, monthID, page, limit)
	if err != nil {
		return httptransport.TicketListResponse{}, err
	}
	return ticketListResponse(tickets, page, limit, total, true), nil
}

func (h Handler) TicketNumbersHandler(ctx context.Context, monthID string) (httptransport.TicketNumbersResponse, error) {
	numbers, err := h.Tickets.TicketNumbers(ctx, monthID)
	if err != nil {
		return httptransport.TicketNumbersResponse{}, err
	}
	return httptransport.TicketNumbersResponse{Success: true, Data: numbers}, nil
}

func ticketListResponse(tickets []entities.Ticket, page int, limit int, total int, withUser bool) httptransport.TicketListResponse {
	resp := httptransport.TicketListResponse{Success: true}
	resp.Data = make([]httptransport.TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		resp.Data = append(resp.Data, toTicketDTO(ticket, withUser))
	}
	resp.Pagination = httptransport.NewPagination(normalizedPage(page), normalizedLimit(limit, 50), total)
	return resp
}

func toMonthDTO(month entities.TombolaMonth) httptransport.MonthDTO {
	dto := httptransport.MonthDTO{
		MonthID:           month.MonthID,
		Month:             month.Month,
		Year:              month.Year,
		Status:            string(month.Status),
		LastTicketNumber:  month.LastTicketNumber,
		LinkedChallengeID: month.LinkedChallengeID,
		CreatedAt:         month.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         month.UpdatedAt.UTC().Format(time.RFC3339),
	}
	dto.Winners = make([]httptransport.WinnerDTO, 0, len(month.Winners))
	for _, winner := range month.Winners {
		dto.Winners = append(dto.Winners, toWinnerDTO(winner))
	}
	if !month.DrawDate.IsZero() {
		dto.DrawDate = month.DrawDate.UTC().Format(time.RFC3339)
	}
	return dto
}

func toWinnerDTO(winner entities.Winner) httptransport.WinnerDTO {
	return httptransport.WinnerDTO{
		UserID:              winner.UserID,
		Prize:               winner.Prize,
		Rank:                winner.Rank,
		WinningTicketNumber: winner.WinningTicketNumber,
	}
}

func toTicketDTO(ticket entities.Ticket, withUser bool) httptransport.TicketDTO {
	dto := httptransport.TicketDTO{
		TicketID:        ticket.TicketID,
		TicketNumber:    ticket.TicketNumber,
		MonthID:         ticket.MonthID,
		Weight:          ticket.Weight,
		UserTicketIndex: ticket.UserTicketIndex,
		SourceType:      string(ticket.SourceType),
		CreatedAt:       ticket.CreatedAt.UTC().Format(time.RFC3339),
	}
	if withUser {
		dto.UserID = ticket.UserID
	}
	return dto
}

func normalizedPage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func normalizedLimit(limit int, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
