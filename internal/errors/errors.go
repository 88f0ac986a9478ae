package errors

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds surfaced by the stores, the scrape client and the session manager.
var (
	// Input errors
	ErrValidation  = errors.New("validation failed")
	ErrNotLoggedIn = errors.New("not logged in")

	// Storage errors
	ErrCredentialStore = errors.New("credential store unavailable")
	ErrCacheStore      = errors.New("grade cache unavailable")

	// Remote errors
	ErrAuthenticationRejected = errors.New("authentication rejected")
	ErrServer                 = errors.New("server error")
	ErrNetworkUnreachable     = errors.New("network unreachable")
	ErrProtocol               = errors.New("protocol error")
)

// ServerError carries the HTTP status and the backend's message for a failed scrape.
// Status is zero when the failure did not come with an HTTP error status (a
// stream error event or a malformed payload).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("server error: %s", e.Message)
	}
	return fmt.Sprintf("server error: %d %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrServer) match.
func (e *ServerError) Unwrap() error {
	return ErrServer
}

// Message renders err as the status line shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var serverErr *ServerError
	switch {
	case errors.As(err, &serverErr):
		if serverErr.Status == 0 {
			return serverErr.Message
		}
		msg := serverErr.Message
		if msg == "" {
			msg = "Please try again."
		}
		return fmt.Sprintf("Server Error: %d - %s", serverErr.Status, msg)
	case errors.Is(err, ErrValidation):
		return "Please enter both username and password."
	case errors.Is(err, ErrNotLoggedIn):
		return "Credentials not found. Please log in again."
	case errors.Is(err, ErrCredentialStore):
		return "Secure credential storage is unavailable. Please try again."
	case errors.Is(err, ErrCacheStore):
		return "Offline grade storage is unavailable."
	case errors.Is(err, ErrAuthenticationRejected):
		return "The portal rejected your credentials. Please log in again."
	case errors.Is(err, ErrNetworkUnreachable):
		return "Network Error: Could not connect to the server."
	case errors.Is(err, ErrProtocol):
		return "Invalid data format received from server."
	case errors.Is(err, ErrServer):
		return "Server Error: Please try again."
	case errors.Is(err, context.Canceled):
		return "Sync cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Network Error: The server took too long to respond."
	}
	return "An unknown error occurred during sync."
}

// Join combines errs into one, skipping nils. It returns nil when all are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
