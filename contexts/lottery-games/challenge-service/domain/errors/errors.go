package errors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")

	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrEntrepreneurNotFound  = errors.New("entrepreneur not found")
	ErrVoteNotFound          = errors.New("vote not found")
	ErrChallengeExists       = errors.New("a challenge already exists for this period")
	ErrInvalidTransition     = errors.New("challenge status transition not allowed")
	ErrChallengeNotActive    = errors.New("challenge is not active")
	ErrChallengeNotDeletable = errors.New("challenge can only be deleted while in draft")

	ErrEntrepreneurNotApproved = errors.New("entrepreneur is not approved")
	ErrEntrepreneurMismatch    = errors.New("entrepreneur does not belong to this challenge")
	ErrRosterFull              = errors.New("entrepreneur roster is full for this challenge")
	ErrVideoTooLong            = errors.New("presentation video exceeds the duration limit")
	ErrEntrepreneurHasVotes    = errors.New("entrepreneur has recorded votes and cannot be deleted")

	ErrTicketAllowanceExhausted = errors.New("monthly ticket allowance reached, use support to contribute without tickets")
	ErrVoteAmountInvalid        = errors.New("amount must be a positive multiple of the vote price")

	ErrFundsAlreadyDistributed = errors.New("funds have already been distributed")
	ErrNoWinner                = errors.New("no winner with a linked user account")
	ErrPayoutAccountsMissing   = errors.New("payout accounts are not configured")
)
