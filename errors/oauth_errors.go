package errors

import "fmt"

// OAuth2Error is the JSON error body returned by the HTTP surface.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes
const (
	InvalidRequest         = "invalid_request"
	AccessDenied           = "access_denied"
	NotFound               = "not_found"
	ServerError            = "server_error"
	TemporarilyUnavailable = "temporarily_unavailable"
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewNotFound(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        NotFound,
		Description: description,
	}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        ServerError,
		Description: description,
	}
}

func NewTemporarilyUnavailable(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        TemporarilyUnavailable,
		Description: description,
	}
}

// NewAccessDenied is used when the browser half of the pairing flow fails.
func NewAccessDenied(description, state string) *OAuth2Error {
	return &OAuth2Error{
		Code:        AccessDenied,
		Description: description,
		State:       state,
	}
}
