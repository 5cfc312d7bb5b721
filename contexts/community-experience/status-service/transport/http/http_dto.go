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

type AuthorDTO struct {
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role,omitempty"`
}

type StatusDTO struct {
	StatusID         string     `json:"statusId"`
	AuthorID         string     `json:"authorId"`
	Author           *AuthorDTO `json:"author,omitempty"`
	Category         string     `json:"category"`
	Content          string     `json:"content,omitempty"`
	MediaType        string     `json:"mediaType"`
	MediaURL         string     `json:"mediaUrl,omitempty"`
	ThumbnailURL     string     `json:"thumbnailUrl,omitempty"`
	VideoDuration    int        `json:"videoDuration,omitempty"`
	Country          string     `json:"country,omitempty"`
	City             string     `json:"city,omitempty"`
	Region           string     `json:"region,omitempty"`
	LikesCount       int        `json:"likesCount"`
	RepostsCount     int        `json:"repostsCount"`
	RepliesCount     int        `json:"repliesCount"`
	ViewsCount       int        `json:"viewsCount"`
	IsLiked          bool       `json:"isLiked"`
	IsReposted       bool       `json:"isReposted"`
	ContentWarned    bool       `json:"contentWarned,omitempty"`
	IsRepost         bool       `json:"isRepost,omitempty"`
	OriginalStatusID string     `json:"originalStatusId,omitempty"`
	ExpiresAt        string     `json:"expiresAt"`
	CreatedAt        string     `json:"createdAt"`
	UpdatedAt        string     `json:"updatedAt"`
}

type CategoryDTO struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	AdminOnly bool   `json:"adminOnly"`
}

type InteractionUserDTO struct {
	UserID       string `json:"userId"`
	Name         string `json:"name,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	Role         string `json:"role,omitempty"`
	InteractedAt string `json:"interactedAt"`
}

type CreateStatusRequest struct {
	Category         string `json:"category"`
	Content          string `json:"content,omitempty"`
	MediaType        string `json:"mediaType,omitempty"`
	VideoDuration    int    `json:"videoDuration,omitempty"`
	Country          string `json:"country,omitempty"`
	City             string `json:"city,omitempty"`
	Region           string `json:"region,omitempty"`
	OriginalStatusID string `json:"originalStatusId,omitempty"`
	MediaFilename    string `json:"-"`
	MediaMimeType    string `json:"-"`
	MediaData        []byte `json:"-"`
}

type StatusResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    StatusDTO `json:"data"`
}

type StatusListResponse struct {
	Success    bool           `json:"success"`
	Data       []StatusDTO    `json:"data"`
	Pagination *PaginationDTO `json:"pagination,omitempty"`
}

type CategoriesResponse struct {
	Success bool          `json:"success"`
	Data    []CategoryDTO `json:"data"`
}

type InteractionListResponse struct {
	Success    bool                 `json:"success"`
	Data       []InteractionUserDTO `json:"data"`
	Pagination *PaginationDTO       `json:"pagination,omitempty"`
}

type ReplyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		ConversationID string `json:"conversationId"`
		Created        bool   `json:"created"`
	} `json:"data"`
}

type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
