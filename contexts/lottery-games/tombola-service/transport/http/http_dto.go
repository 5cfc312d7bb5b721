package http

type PaginationDTO struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	Limit       int `json:"limit"`
}

// NewPagination builds the envelope pagination block from a page request and
// the repository's total row count.
func NewPagination(page int, limit int, total int) *PaginationDTO {
	if limit <= 0 {
		limit = 1
	}
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return &PaginationDTO{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       limit,
	}
}

type WinnerDTO struct {
	UserID              string `json:"userId"`
	Prize               string `json:"prize"`
	Rank                int    `json:"rank"`
	WinningTicketNumber int    `json:"winningTicketNumber"`
}

type MonthDTO struct {
	MonthID           string      `json:"monthId"`
	Month             int         `json:"month"`
	Year              int         `json:"year"`
	Status            string      `json:"status"`
	LastTicketNumber  int         `json:"lastTicketNumber"`
	Winners           []WinnerDTO `json:"winners"`
	DrawDate          string      `json:"drawDate,omitempty"`
	LinkedChallengeID string      `json:"linkedChallengeId,omitempty"`
	CreatedAt         string      `json:"createdAt"`
	UpdatedAt         string      `json:"updatedAt"`
}

type TicketDTO struct {
	TicketID        string  `json:"ticketId"`
	TicketNumber    int     `json:"ticketNumber"`
	MonthID         string  `json:"monthId"`
	UserID          string  `json:"userId,omitempty"`
	Weight          float64 `json:"weight"`
	UserTicketIndex int     `json:"userTicketIndex"`
	SourceType      string  `json:"sourceType"`
	CreatedAt       string  `json:"createdAt"`
}

type CreateMonthRequest struct {
	Month             int    `json:"month"`
	Year              int    `json:"year"`
	LinkedChallengeID string `json:"linkedChallengeId,omitempty"`
}

type UpdateMonthRequest struct {
	LinkedChallengeID *string `json:"linkedChallengeId"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type PaymentWebhookRequest struct {
	SessionID string            `json:"sessionId"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
}

type MonthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    MonthDTO `json:"data"`
}

type MonthListResponse struct {
	Success    bool           `json:"success"`
	Data       []MonthDTO     `json:"data"`
	Pagination *PaginationDTO `json:"pagination,omitempty"`
}

type WinnersResponse struct {
	Success bool        `json:"success"`
	Data    []WinnerDTO `json:"data"`
}

type TicketListResponse struct {
	Success    bool           `json:"success"`
	Data       []TicketDTO    `json:"data"`
	Pagination *PaginationDTO `json:"pagination,omitempty"`
}

type TicketNumbersResponse struct {
	Success bool  `json:"success"`
	Data    []int `json:"data"`
}

type PurchaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		TicketID    string `json:"ticketId"`
		SessionID   string `json:"sessionId"`
		CheckoutURL string `json:"checkoutUrl"`
		Amount      int64  `json:"amount"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
