package domain

import "errors"

var (
	ErrValidation      = errors.New("invalid input")
	ErrHazardNotFound  = errors.New("hazard not found")
	ErrVoteNotFound    = errors.New("vote not found")
	ErrReportNotFound  = errors.New("resolution report not found")
	ErrConfirmationNotFound = errors.New("resolution confirmation not found")
	ErrOwnVote         = errors.New("cannot vote on own hazard")
	ErrForbidden       = errors.New("operation requires administrator role")
	ErrReportExists    = errors.New("resolution report already exists for hazard")
	ErrNoOpenReport    = errors.New("no open resolution report for hazard")
	ErrAlreadyResolved = errors.New("hazard is already resolved")
	ErrNotResolved     = errors.New("hazard is not resolved")
	ErrPolicyMismatch  = errors.New("operation not allowed for lifecycle policy")
	ErrConcurrency     = errors.New("concurrent update conflict, retry")
)
