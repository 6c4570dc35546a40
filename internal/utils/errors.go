package utils

import "errors"

// Common application errors used across services.
var (
	ErrInvalidCEP        = errors.New("INVALID_CEP")
	ErrInvalidUF         = errors.New("INVALID_UF")
	ErrCEPNotFound       = errors.New("CEP_NOT_FOUND")
	ErrCEPAlreadyExists  = errors.New("CEP_ALREADY_EXISTS")
	ErrUpstreamMalformed = errors.New("UPSTREAM_MALFORMED")
	ErrInvalidToken      = errors.New("INVALID_TOKEN")
)
