package apperrors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid permission request")
	ErrUnknownRole    = errors.New("unknown role")

	ErrCacheUnavailable = errors.New("decision cache unavailable")
)
