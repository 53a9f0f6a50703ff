package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	email = normalizeEmail(email)
	var errs []*ValidationError
	if err := checkEmail(email); err != nil {
		errs = append(errs, err)
	}
	if err := required("password", password); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return m.finish(failFields(OpLogin, errs))
	}

	return m.run(OpLogin, func() Result {
		resp, err := m.api.LoginPassword(ctx, email, password)
		if err != nil {
			return fail(OpLogin, classify(OpLogin, err))
		}
		m.signIn(ctx, resp, nil)
		return succeed(OpLogin, messageOr(resp.Message, "Logged in successfully"))
	})
}

// RequestOtp asks the API to email a login code and remembers the email.
func (m *Manager) RequestOtp(ctx context.Context, email string) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpRequestOtp, err))
	}

	return m.run(OpRequestOtp, func() Result {
		ack, err := m.api.SendOTP(ctx, email)
		if err != nil {
			return fail(OpRequestOtp, classify(OpRequestOtp, err))
		}
		m.update(func(s *state) bool {
			s.pendingEmail = email
			return true
		})
		return succeed(OpRequestOtp, messageOr(ack.Message, fmt.Sprintf("OTP sent to %s", email)))
	})
}

// ResendOtp re-sends a login or registration code. It does not change state.
func (m *Manager) ResendOtp(ctx context.Context, email string, purpose apiclient.Purpose) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpResendOtp, err))
	}
	if !purpose.Valid() {
		return m.finish(fail(OpResendOtp, &ValidationError{Field: "purpose", Message: "Purpose must be login or registration"}))
	}

	return m.run(OpResendOtp, func() Result {
		ack, err := m.api.ResendOTP(ctx, email, purpose)
		if err != nil {
			return fail(OpResendOtp, classify(OpResendOtp, err))
		}
		return succeed(OpResendOtp, messageOr(ack.Message, fmt.Sprintf("A new OTP was sent to %s", email)))
	})
}

// VerifyOtp exchanges a login code for a session.
func (m *Manager) VerifyOtp(ctx context.Context, email, otp string) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpVerifyOtp, err))
	}
	if err := validateLoginOtp(otp); err != nil {
		return m.finish(fail(OpVerifyOtp, err))
	}

	return m.run(OpVerifyOtp, func() Result {
		resp, err := m.api.VerifyOTP(ctx, email, strings.TrimSpace(otp))
		if err != nil {
			return fail(OpVerifyOtp, classify(OpVerifyOtp, err))
		}
		m.signIn(ctx, resp, nil)
		return succeed(OpVerifyOtp, messageOr(resp.Message, "Logged in successfully"))
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func messageOr(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}
