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

type DistributionDTO struct {
	WinnerAmount            int64  `json:"winnerAmount"`
	LotteryPoolAmount       int64  `json:"lotteryPoolAmount"`
	CommissionAmount        int64  `json:"commissionAmount"`
	WinnerTransactionID     string `json:"winnerTransactionId,omitempty"`
	LotteryTransactionID    string `json:"lotteryTransactionId,omitempty"`
	CommissionTransactionID string `json:"commissionTransactionId,omitempty"`
	DistributedAt           string `json:"distributedAt,omitempty"`
}

type ChallengeDTO struct {
	ChallengeID      string           `json:"challengeId"`
	Month            int              `json:"month"`
	Year             int              `json:"year"`
	CampaignName     string           `json:"campaignName"`
	Status           string           `json:"status"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	DescriptionFR    string           `json:"descriptionFr"`
	DescriptionEN    string           `json:"descriptionEn"`
	TombolaMonthID   string           `json:"tombolaMonthId"`
	TotalCollected   int64            `json:"totalCollected"`
	TotalVoteCount   int              `json:"totalVoteCount"`
	FundsDistributed bool             `json:"fundsDistributed"`
	Distribution     *DistributionDTO `json:"distribution,omitempty"`
	CreatedAt        string           `json:"createdAt"`
	UpdatedAt        string           `json:"updatedAt"`
}

type EntrepreneurDTO struct {
	EntrepreneurID     string `json:"entrepreneurId"`
	ChallengeID        string `json:"challengeId"`
	UserID             string `json:"userId"`
	ProjectName        string `json:"projectName"`
	ProjectDescription string `json:"projectDescription"`
	City               string `json:"city"`
	PhotoURL           string `json:"photoUrl,omitempty"`
	VideoURL           string `json:"videoUrl,omitempty"`
	VideoDuration      int    `json:"videoDuration"`
	VoteCount          int    `json:"voteCount"`
	TotalAmount        int64  `json:"totalAmount"`
	Rank               int    `json:"rank,omitempty"`
	IsWinner           bool   `json:"isWinner"`
	Approved           bool   `json:"approved"`
	CreatedAt          string `json:"createdAt"`
}

type VoteDTO struct {
	VoteID                string   `json:"voteId"`
	ChallengeID           string   `json:"challengeId"`
	EntrepreneurID        string   `json:"entrepreneurId"`
	UserID                string   `json:"userId,omitempty"`
	AmountPaid            int64    `json:"amountPaid"`
	VoteQuantity          int      `json:"voteQuantity"`
	VoteType              string   `json:"voteType"`
	PaymentStatus         string   `json:"paymentStatus"`
	TombolaTicketIDs      []string `json:"tombolaTicketIds,omitempty"`
	TicketsGenerated      bool     `json:"ticketsGenerated"`
	TicketGenerationError string   `json:"ticketGenerationError,omitempty"`
	CreatedAt             string   `json:"createdAt"`
}

type CreateChallengeRequest struct {
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	CampaignName  string `json:"campaignName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	DescriptionFR string `json:"descriptionFr"`
	DescriptionEN string `json:"descriptionEn"`
}

type UpdateChallengeRequest struct {
	CampaignName  *string `json:"campaignName"`
	StartDate     *string `json:"startDate"`
	EndDate       *string `json:"endDate"`
	DescriptionFR *string `json:"descriptionFr"`
	DescriptionEN *string `json:"descriptionEn"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type AddEntrepreneurRequest struct {
	UserID             string `json:"userId"`
	ProjectName        string `json:"projectName"`
	ProjectDescription string `json:"projectDescription"`
	City               string `json:"city"`
	PhotoURL           string `json:"photoUrl"`
	VideoURL           string `json:"videoUrl"`
	VideoDuration      int    `json:"videoDuration"`
}

type UpdateEntrepreneurRequest struct {
	ProjectName        *string `json:"projectName"`
	ProjectDescription *string `json:"projectDescription"`
	City               *string `json:"city"`
	PhotoURL           *string `json:"photoUrl"`
	VideoURL           *string `json:"videoUrl"`
	VideoDuration      *int    `json:"videoDuration"`
}

type VoteRequest struct {
	EntrepreneurID string `json:"entrepreneurId"`
	Amount         int64  `json:"amount"`
}

type PaymentWebhookRequest struct {
	SessionID string            `json:"sessionId"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
}

type VoteSessionDTO struct {
	VoteID         string `json:"voteId"`
	SessionID      string `json:"sessionId"`
	CheckoutURL    string `json:"checkoutUrl"`
	VoteQuantity   int    `json:"voteQuantity"`
	TicketQuantity int    `json:"ticketQuantity"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

type AllowanceDTO struct {
	MonthID    string `json:"monthId"`
	MaxTickets int    `json:"maxTickets"`
	Used       int    `json:"used"`
	Available  int    `json:"available"`
	VotePrice  int64  `json:"votePrice"`
}

type FundSummaryDTO struct {
	TotalCollected    int64            `json:"totalCollected"`
	TotalVoteCount    int              `json:"totalVoteCount"`
	FundsDistributed  bool             `json:"fundsDistributed"`
	WinnerAmount      int64            `json:"winnerAmount"`
	LotteryPoolAmount int64            `json:"lotteryPoolAmount"`
	CommissionAmount  int64            `json:"commissionAmount"`
	Distribution      *DistributionDTO `json:"distribution,omitempty"`
}

type AnalyticsDTO struct {
	ChallengeID           string `json:"challengeId"`
	Status                string `json:"status"`
	TotalCollected        int64  `json:"totalCollected"`
	TotalVoteCount        int    `json:"totalVoteCount"`
	CompletedVotes        int    `json:"completedVotes"`
	CompletedSupports     int    `json:"completedSupports"`
	VoteAmount            int64  `json:"voteAmount"`
	SupportAmount         int64  `json:"supportAmount"`
	TicketsMinted         int    `json:"ticketsMinted"`
	UniqueParticipants    int    `json:"uniqueParticipants"`
	Entrepreneurs         int    `json:"entrepreneurs"`
	ApprovedEntrepreneurs int    `json:"approvedEntrepreneurs"`
}

type ChallengeResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    ChallengeDTO `json:"data"`
}

type ChallengeListResponse struct {
	Success    bool           `json:"success"`
	Data       []ChallengeDTO `json:"data"`
	Pagination *PaginationDTO `json:"pagination,omitempty"`
}

type EntrepreneurResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    EntrepreneurDTO `json:"data"`
}

type EntrepreneurListResponse struct {
	Success bool              `json:"success"`
	Data    []EntrepreneurDTO `json:"data"`
}

type VoteSessionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    VoteSessionDTO `json:"data"`
}

type VoteListResponse struct {
	Success    bool           `json:"success"`
	Data       []VoteDTO      `json:"data"`
	Pagination *PaginationDTO `json:"pagination,omitempty"`
}

type AllowanceResponse struct {
	Success bool         `json:"success"`
	Data    AllowanceDTO `json:"data"`
}

type FundSummaryResponse struct {
	Success bool           `json:"success"`
	Data    FundSummaryDTO `json:"data"`
}

type AnalyticsResponse struct {
	Success bool         `json:"success"`
	Data    AnalyticsDTO `json:"data"`
}

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
