package errors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")

	ErrStatusNotFound     = errors.New("status not found")
	ErrCategoryUnknown    = errors.New("unknown status category")
	ErrCategoryRestricted = errors.New("category is reserved for administrators")
	ErrContentTooLong     = errors.New("status content exceeds the maximum length")
	ErrEmptyStatus        = errors.New("status requires content or media")
	ErrVideoTooLong       = errors.New("video exceeds the maximum duration")
	ErrSelfReply          = errors.New("cannot reply to your own status")
	ErrNotAuthor          = errors.New("only the author may delete a status")
	ErrModerationBlocked  = errors.New("content blocked by moderation")
)

// ModerationBlocked carries the moderation reason to the caller while still
// matching ErrModerationBlocked under errors.Is.
type ModerationBlocked struct {
	Reason string
}

func (e ModerationBlocked) Error() string {
	if e.Reason == "" {
		return ErrModerationBlocked.Error()
	}
	return "content blocked by moderation: " + e.Reason
}

func (e ModerationBlocked) Is(target error) bool {
	return target == ErrModerationBlocked
}
