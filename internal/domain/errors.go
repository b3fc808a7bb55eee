package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrProfileMissing      = errors.New("profile missing")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnsupportedModel    = errors.New("unsupported model")
	ErrConfiguration       = errors.New("service configuration error")
)
