package errors

import "errors"

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with different request")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
	ErrNotSender            = errors.New("only the sender may delete a message")
	ErrSelfConversation     = errors.New("cannot open a conversation with yourself")
	ErrConversationBlocked  = errors.New("conversation is blocked or reported")
	ErrMessageLimitReached  = errors.New("message limit reached until the conversation is accepted")
	ErrContentTooLong       = errors.New("message content exceeds the maximum length")
	ErrEmptyContent         = errors.New("message content is required")
)
