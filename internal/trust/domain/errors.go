package domain

import "errors"

var (
	ErrUserNotFound   = errors.New("trust score not found for user")
	ErrEventNotFound  = errors.New("trust score event not found")
	ErrConfigNotFound = errors.New("no points configured for event type")
	ErrInvalidEvent   = errors.New("invalid trust score event")
	ErrForbidden      = errors.New("operation requires administrator role")
)
