package entities

import (
	"strings"
	"time"
)

type MediaType string

const (
	MediaTypeText  MediaType = "text"
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeFlyer MediaType = "flyer"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeText, MediaTypeImage, MediaTypeVideo, MediaTypeFlyer:
		return true
	default:
		return false
	}
}

// MediaPathScheme prefixes opaque storage paths persisted on a status. The
// raw path is never served; readers exchange it for a signed URL.
const MediaPathScheme = "storage://"

// Status is one ephemeral post. Counts are denormalized and mutated only
// through interaction writes.
type Status struct {
	StatusID         string
	AuthorID         string
	Category         string
	Content          string
	MediaType        MediaType
	MediaURL         string
	MediaMimeType    string
	ThumbnailURL     string
	VideoDuration    int
	Country          string
	City             string
	Region           string
	LikesCount       int
	RepostsCount     int
	RepliesCount     int
	ViewsCount       int
	IsApproved       bool
	ContentWarned    bool
	ModerationReason string
	IsRepost         bool
	OriginalStatusID string
	ExpiresAt        time.Time
	Deleted          bool
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Visible reports whether the status may appear in feeds at the given time.
func (s Status) Visible(now time.Time) bool {
	return !s.Deleted && s.IsApproved && s.ExpiresAt.After(now)
}

func (s Status) IsAuthor(userID string) bool {
	return s.AuthorID == strings.TrimSpace(userID)
}

type InteractionType string

const (
	InteractionLike   InteractionType = "like"
	InteractionRepost InteractionType = "repost"
	InteractionView   InteractionType = "view"
)

// Interaction records one user action on a status. Like and repost are
// unique per (status,user); views accumulate but are suppressed when the
// same user viewed within the past hour.
type Interaction struct {
	InteractionID string
	StatusID      string
	UserID        string
	Type          InteractionType
	CreatedAt     time.Time
}

// ViewSuppressionWindow is the period during which repeat views by the same
// user do not count.
const ViewSuppressionWindow = time.Hour
