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

type PeerDTO struct {
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role,omitempty"`
}

type LastMessageDTO struct {
	MessageID string `json:"messageId"`
	Preview   string `json:"preview"`
	SenderID  string `json:"senderId"`
	SentAt    string `json:"sentAt"`
}

type ConversationDTO struct {
	ConversationID   string          `json:"conversationId"`
	Type             string          `json:"type"`
	StatusID         string          `json:"statusId,omitempty"`
	Participants     []string        `json:"participants"`
	InitiatorID      string          `json:"initiatorId"`
	AcceptanceStatus string          `json:"acceptanceStatus"`
	AcceptedAt       string          `json:"acceptedAt,omitempty"`
	LastMessage      *LastMessageDTO `json:"lastMessage,omitempty"`
	UnreadCount      int             `json:"unreadCount"`
	Peers            []PeerDTO       `json:"peers,omitempty"`
	Archived         bool            `json:"archived"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

type ReplyRefDTO struct {
	MessageID  string `json:"messageId"`
	Snippet    string `json:"snippet"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Type       string `json:"type"`
}

type MessageDTO struct {
	MessageID      string       `json:"messageId"`
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	Type           string       `json:"type"`
	Content        string       `json:"content,omitempty"`
	DocumentURL    string       `json:"documentUrl,omitempty"`
	DocumentName   string       `json:"documentName,omitempty"`
	DocumentType   string       `json:"documentType,omitempty"`
	DocumentSize   int64        `json:"documentSize,omitempty"`
	ReplyTo        *ReplyRefDTO `json:"replyTo,omitempty"`
	Status         string       `json:"status"`
	ReadBy         []string     `json:"readBy"`
	DeliveredTo    []string     `json:"deliveredTo"`
	Deleted        bool         `json:"deleted"`
	CreatedAt      string       `json:"createdAt"`
	UpdatedAt      string       `json:"updatedAt,omitempty"`
}

type MessageGroupDTO struct {
	Date     string       `json:"date"`
	Messages []MessageDTO `json:"messages"`
}

type MessagingStatusDTO struct {
	CanSend           bool   `json:"canSend"`
	Reason            string `json:"reason,omitempty"`
	MessagesRemaining *int   `json:"messagesRemaining,omitempty"`
}

type CreateConversationRequest struct {
	ParticipantID string `json:"participantId"`
}

type SendMessageRequest struct {
	Type      string `json:"type,omitempty"`
	Content   string `json:"content"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type SendDocumentRequest struct {
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}

type ForwardMessagesRequest struct {
	MessageIDs      []string `json:"messageIds"`
	ConversationIDs []string `json:"conversationIds"`
}

type MarkMessagesRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type BulkDeleteMessagesRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type BulkArchiveRequest struct {
	ConversationIDs []string `json:"conversationIds"`
}

type ConversationResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    ConversationDTO `json:"data"`
}

type ConversationListResponse struct {
	Success    bool              `json:"success"`
	Data       []ConversationDTO `json:"data"`
	Pagination *PaginationDTO    `json:"pagination,omitempty"`
}

type MessagingStatusResponse struct {
	Success bool               `json:"success"`
	Data    MessagingStatusDTO `json:"data"`
}

type MessageResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    MessageDTO `json:"data"`
}

type MessageListResponse struct {
	Success    bool              `json:"success"`
	Data       []MessageGroupDTO `json:"data"`
	Pagination *PaginationDTO    `json:"pagination,omitempty"`
}

type MessagesResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    []MessageDTO `json:"data"`
}

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
