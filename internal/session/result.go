package session

import (
	"errors"

	"github.com/estate-link/estate_link/internal/store"
)

const networkMessage = "Unable to reach the server. Please check your connection and try again."

// Result is the outcome of one session operation. Operations never return
// errors out of band; callers branch on Success and show Message.
type Result struct {
	Op      Op
	Success bool
	Message string
	// Err wraps one of the error classes when Success is false.
	Err error
	// Fields maps input fields to validation messages.
	Fields map[string]string
	// Next echoes the caller-supplied destination after a registration OTP check.
	Next string
	// Registration is the draft after a registration step.
	Registration *store.PendingRegistration
}

func succeed(op Op, message string) Result {
	return Result{Op: op, Success: true, Message: message}
}

func fail(op Op, err error) Result {
	res := Result{Op: op, Err: err, Message: failureMessage(err)}
	var verr *ValidationError
	if errors.As(err, &verr) {
		res.Fields = map[string]string{verr.Field: verr.Message}
	}
	return res
}

func failFields(op Op, errs []*ValidationError) Result {
	res := fail(op, errs[0])
	for _, e := range errs[1:] {
		res.Fields[e.Field] = e.Message
	}
	return res
}

func failureMessage(err error) string {
	var (
		verr   *ValidationError
		remote *RemoteError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &remote):
		return remote.Message
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue"
	case errors.Is(err, ErrBusy):
		return "Please wait, the previous request is still in progress"
	case errors.Is(err, ErrSuperseded):
		return "Your session changed while the request was in progress"
	case errors.Is(err, ErrNetwork):
		return networkMessage
	}
	return err.Error()
}
