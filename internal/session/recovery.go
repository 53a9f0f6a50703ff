package session

import (
	"context"
	"strings"
)

// ForgotPassword asks the API to email a reset link. Session state is untouched.
func (m *Manager) ForgotPassword(ctx context.Context, email string) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpForgotPassword, err))
	}

	return m.run(OpForgotPassword, func() Result {
		ack, err := m.api.ForgotPassword(ctx, email)
		if err != nil {
			return fail(OpForgotPassword, classify(OpForgotPassword, err))
		}
		return succeed(OpForgotPassword, messageOr(ack.Message, "Password reset link sent to your email"))
	})
}

// ResetPassword consumes a reset token. It never signs the broker in.
func (m *Manager) ResetPassword(ctx context.Context, token, password, confirm string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return m.finish(fail(OpResetPassword, &ValidationError{
			Field:   "token",
			Message: "Reset link is missing or incomplete",
			Kind:    ErrInvalidToken,
		}))
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return m.finish(fail(OpResetPassword, err))
	}

	return m.run(OpResetPassword, func() Result {
		ack, err := m.api.ResetPassword(ctx, token, password)
		if err != nil {
			return fail(OpResetPassword, classify(OpResetPassword, err))
		}
		return succeed(OpResetPassword, messageOr(ack.Message, "Password reset successful. Please log in"))
	})
}
