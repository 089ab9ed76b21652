package errors

import "errors"

var (
	// ErrInvalidRequest is returned for an empty or malformed pairing code,
	// device type or device id. The store is never touched.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound means the pairing code or its backing record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRecord means a stored value could not be decoded.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUpstreamUnavailable means the media platform API could not refill the cache.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUnsupported means the upstream has no source for the requested data.
	// Callers serve what they have cached instead of failing.
	ErrUnsupported = errors.New("not supported by upstream")
	// ErrCodeSpaceExhausted is returned when no free pairing code was found
	// within the attempt budget.
	ErrCodeSpaceExhausted = errors.New("no free pairing code available")
	// ErrExchangeFailed means the authorization code could not be traded for a token.
	ErrExchangeFailed = errors.New("failed to exchange authorization code for token")
)

// Is is errors.Is, re-exported so callers importing this package under its
// own name need not alias the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
