package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// Error classes. Every failed Result wraps exactly one of these.
var (
	// ErrValidation is a local, pre-flight failure; no request was sent.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork covers transport failures and unreadable error responses.
	ErrNetwork = errors.New("network error")
	// ErrRemoteRejected is a structured refusal from the API.
	ErrRemoteRejected = errors.New("request rejected")
	// ErrUnauthenticated means the operation needs a signed-in session.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrBusy means the same operation is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrSuperseded means a newer session change made this response stale.
	ErrSuperseded = errors.New("superseded by a newer session change")
)

// Specific failure kinds, combined with a class by ValidationError or RemoteError.
var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidOtp         = errors.New("invalid otp")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("weak password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrExpiredToken       = errors.New("reset token expired")
	ErrInvalidToken       = errors.New("invalid reset token")
)

// ValidationError is a client-side rejection of one input field.
type ValidationError struct {
	Field   string
	Message string
	Kind    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Kind}
}

// RemoteError is a structured rejection from the API.
type RemoteError struct {
	Status  int
	Message string
	Kind    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rejected (%d): %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrRemoteRejected}
	}
	return []error{ErrRemoteRejected, e.Kind}
}

// classify turns an apiclient error into the session taxonomy. The specific
// kind depends on which operation saw the rejection.
func classify(op Op, err error) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	remote := &RemoteError{Status: apiErr.Status, Message: apiErr.Message}
	rejected := apiErr.Status == http.StatusBadRequest ||
		apiErr.Status == http.StatusUnauthorized ||
		apiErr.Status == http.StatusNotFound ||
		apiErr.Status < 300

	switch op {
	case OpLogin:
		if rejected {
			remote.Kind = ErrInvalidCredentials
		}
	case OpVerifyOtp, OpVerifyRegistrationOtp:
		if rejected {
			remote.Kind = ErrInvalidOtp
		}
	case OpResetPassword:
		switch {
		case apiErr.Status == http.StatusGone || strings.Contains(strings.ToLower(apiErr.Message), "expired"):
			remote.Kind = ErrExpiredToken
		case rejected:
			remote.Kind = ErrInvalidToken
		}
	case OpRestore, OpRefreshProfile, OpUpdateProfile:
		if apiErr.Status == http.StatusUnauthorized {
			remote.Kind = ErrUnauthenticated
		}
	}
	return remote
}
