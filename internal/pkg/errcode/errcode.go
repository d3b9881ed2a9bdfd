package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrDimensionMismatch
	ErrTooMany
	ErrInternal
	ErrUpstreamUnavailable
	ErrInvalidCursor
	ErrInvalidWeights
)
