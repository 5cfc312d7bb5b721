package errors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")

	ErrMonthNotFound    = errors.New("tombola month not found")
	ErrTicketNotFound   = errors.New("tombola ticket not found")
	ErrNoOpenMonth      = errors.New("no tombola month is open")
	ErrMonthInFuture    = errors.New("cannot create a tombola month in the future")
	ErrMonthExists      = errors.New("a tombola month already exists for this period")
	ErrMonthHasTickets  = errors.New("tombola month already has tickets")
	ErrDrawNotAllowed   = errors.New("tombola month is not drawable")
	ErrAlreadyDrawn     = errors.New("winners have already been drawn for this month")
	ErrTicketCapReached = errors.New("monthly ticket limit reached")
)
