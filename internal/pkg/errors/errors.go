package errors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalid             = errors.New("invalid")
	ErrDimensionMismatch   = errors.New("dimension mismatch")
	ErrTooMany             = errors.New("too many requests")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrConfiguration       = errors.New("configuration error")
	ErrInternal            = errors.New("internal")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err must be rejected before any ranking work.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalid) || errors.Is(err, ErrDimensionMismatch)
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
