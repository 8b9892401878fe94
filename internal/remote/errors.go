package remote

import (
	"errors"
	"fmt"

	"github.com/matheuskafuri/briefly/internal/article"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses that are not
	// about credentials.
	ErrNetwork = errors.New("network error")
	// ErrAuth means the caller is not signed in or the API rejected the
	// credentials.
	ErrAuth = errors.New("authentication required")
	// ErrPermission means the signed-in user may not perform the operation.
	ErrPermission = errors.New("permission denied")
	// ErrSessionExpired means an admin call was rejected because the token is
	// no longer valid. Callers should forget the token.
	ErrSessionExpired = errors.New("session expired")
)

// StatusError carries the HTTP status of a failed call.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// Describe renders err as a message for the person who triggered it.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Your session expired. Please log in again."
	case errors.Is(err, ErrPermission):
		return "You do not have permission to do that."
	case errors.Is(err, ErrAuth):
		return "Please log in first."
	case errors.Is(err, article.ErrInvalidArgument):
		return "That request was invalid: " + err.Error()
	case errors.Is(err, ErrNetwork):
		return "Could not reach the server. Please try again."
	}
	return err.Error()
}
