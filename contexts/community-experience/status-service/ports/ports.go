package ports

import (
	"context"
	"time"

	"mboa/contexts/community-experience/status-service/domain/entities"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UserSnapshot is the Directory projection attached to feed entries and
// interaction lists.
type UserSnapshot struct {
	UserID    string
	Name      string
	AvatarURL string
	Role      string
}

type DirectoryClient interface {
	GetUsers(ctx context.Context, userIDs []string) (map[string]UserSnapshot, error)
}

type UploadInput struct {
	Bucket      string
	Filename    string
	ContentType string
	Data        []byte
}

// StorageClient issues opaque storage paths on upload and time-limited
// signed URLs on read.
type StorageClient interface {
	Upload(ctx context.Context, input UploadInput) (string, error)
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	SignedURLs(ctx context.Context, paths []string, expiry time.Duration) (map[string]string, error)
}

type ModerationAction string

const (
	ModerationAllow ModerationAction = "allow"
	ModerationWarn  ModerationAction = "warn"
	ModerationBlock ModerationAction = "block"
)

// MediaRef describes the media under review. StoragePath is the opaque path
// of the already uploaded object; Data carries the raw bytes for local
// backends that analyse the buffer directly.
type MediaRef struct {
	MediaType   entities.MediaType
	StoragePath string
	MimeType    string
	Data        []byte
}

type ModerationResult struct {
	Action ModerationAction
	Reason string
	Scores map[string]float64
}

// ModerationClient reviews media before a status is persisted. Transport
// failures fail open to allow; only an explicit block verdict rejects.
type ModerationClient interface {
	Moderate(ctx context.Context, ref MediaRef) (ModerationResult, error)
}

// ConversationBridge opens the unique status-reply conversation in the chat
// service. The second return value reports whether it was newly created.
type ConversationBridge interface {
	OpenStatusReply(ctx context.Context, statusID string, replyerID string, authorID string) (string, bool, error)
}

// EventPublisher fans an event out to a realtime room. Publishing is
// fire-and-forget; delivery is bounded by the connection set of this node.
type EventPublisher interface {
	Publish(ctx context.Context, room string, event string, payload any)
}

type CreateStatusInput struct {
	AuthorID         string
	IsAdmin          bool
	Category         string
	Content          string
	MediaType        entities.MediaType
	MediaFilename    string
	MediaMimeType    string
	MediaData        []byte
	VideoDuration    int
	Country          string
	City             string
	Region           string
	OriginalStatusID string
}

type FeedFilters struct {
	Category string
	Country  string
	City     string
	Search   string
	SortBy   string
}

type FeedQuery struct {
	Filters FeedFilters
	Now     time.Time
	Offset  int
	Limit   int
}

type AuthorQuery struct {
	AuthorID    string
	VisibleOnly bool
	Now         time.Time
	Offset      int
	Limit       int
}

type InteractionQuery struct {
	StatusID string
	Type     entities.InteractionType
	Offset   int
	Limit    int
}

// CounterField names a denormalized status counter mutated through atomic
// increments.
type CounterField string

const (
	CounterLikes   CounterField = "likes"
	CounterReposts CounterField = "reposts"
	CounterReplies CounterField = "replies"
	CounterViews   CounterField = "views"
)

// ViewerFlags is the per-status overlay for one viewer.
type ViewerFlags struct {
	IsLiked    bool
	IsReposted bool
}

// StatusView is a feed row: the status plus the author snapshot, the viewer
// overlay and a signed URL for its media when present.
type StatusView struct {
	Status         entities.Status
	Author         UserSnapshot
	Viewer         ViewerFlags
	MediaSignedURL string
	ThumbSignedURL string
}

// InteractionView pairs an interaction with the acting user's snapshot.
type InteractionView struct {
	Interaction entities.Interaction
	User        UserSnapshot
}

type Repository interface {
	CreateStatus(ctx context.Context, status entities.Status) (entities.Status, error)
	GetStatus(ctx context.Context, statusID string) (entities.Status, error)
	ListFeed(ctx context.Context, query FeedQuery) ([]entities.Status, int, error)
	ListByAuthor(ctx context.Context, query AuthorQuery) ([]entities.Status, int, error)
	SoftDeleteStatus(ctx context.Context, statusID string, now time.Time) (entities.Status, error)
	SoftDeleteExpired(ctx context.Context, now time.Time) (int, error)

	// AddInteraction inserts the interaction. For like and repost the write
	// is idempotent per (status,user,type); created=false reports a replay.
	AddInteraction(ctx context.Context, interaction entities.Interaction) (bool, error)
	RemoveInteraction(ctx context.Context, statusID string, userID string, interactionType entities.InteractionType) (bool, error)
	LastViewAt(ctx context.Context, statusID string, userID string) (time.Time, bool, error)
	ViewerFlags(ctx context.Context, statusIDs []string, userID string) (map[string]ViewerFlags, error)
	ListInteractions(ctx context.Context, query InteractionQuery) ([]entities.Interaction, int, error)

	// AdjustCounter atomically adds delta (floored at zero) to the named
	// counter and returns the updated status.
	AdjustCounter(ctx context.Context, statusID string, field CounterField, delta int) (entities.Status, error)
}
