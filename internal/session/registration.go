package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/store"
)

func validateRegistration(name, email, phone string) []*ValidationError {
	var errs []*ValidationError
	if err := required("name", name); err != nil {
		errs = append(errs, err)
	}
	if err := checkEmail(email); err != nil {
		errs = append(errs, err)
	}
	if err := checkPhone(phone); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// RegisterStep1 submits name, email and phone and stores the registration
// draft. A successful call replaces any earlier draft.
func (m *Manager) RegisterStep1(ctx context.Context, name, email, phone string) Result {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if errs := validateRegistration(name, email, phone); len(errs) > 0 {
		return m.finish(failFields(OpRegisterStep1, errs))
	}
	phone = normalizePhone(phone)

	return m.run(OpRegisterStep1, func() Result {
		ack, err := m.api.RegisterStep1(ctx, apiclient.RegisterRequest{Name: name, Email: email, Phone: phone})
		if err != nil {
			return fail(OpRegisterStep1, classify(OpRegisterStep1, err))
		}

		draft := store.PendingRegistration{Name: name, Email: email, Phone: phone, CreatedAt: m.now().UTC()}
		m.update(func(s *state) bool {
			d := draft
			s.registration = &d
			s.pendingEmail = ""
			return true
		})
		m.saveDraft(ctx, draft)

		res := succeed(OpRegisterStep1, messageOr(ack.Message, fmt.Sprintf("OTP sent to %s", email)))
		res.Registration = &draft
		return res
	})
}

// RegisterLegacy uses the single-step registration endpoint. The account is
// then signed in through the login OTP flow.
func (m *Manager) RegisterLegacy(ctx context.Context, name, email, phone string) Result {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if errs := validateRegistration(name, email, phone); len(errs) > 0 {
		return m.finish(failFields(OpRegisterLegacy, errs))
	}
	phone = normalizePhone(phone)

	return m.run(OpRegisterLegacy, func() Result {
		ack, err := m.api.Register(ctx, apiclient.RegisterRequest{Name: name, Email: email, Phone: phone})
		if err != nil {
			return fail(OpRegisterLegacy, classify(OpRegisterLegacy, err))
		}
		m.update(func(s *state) bool {
			s.pendingEmail = email
			return true
		})
		return succeed(OpRegisterLegacy, messageOr(ack.Message, fmt.Sprintf("Registered. OTP sent to %s", email)))
	})
}

// VerifyRegistrationOtp checks the 6 digit registration code. next is the
// destination the caller wants to move to on success; it is echoed in
// Result.Next so navigation stays with the caller.
func (m *Manager) VerifyRegistrationOtp(ctx context.Context, email, otp, next string) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpVerifyRegistrationOtp, err))
	}
	if err := validateRegistrationOtp(otp); err != nil {
		return m.finish(fail(OpVerifyRegistrationOtp, err))
	}

	return m.run(OpVerifyRegistrationOtp, func() Result {
		out, err := m.api.VerifyRegistrationOTP(ctx, email, strings.TrimSpace(otp))
		if err != nil {
			return fail(OpVerifyRegistrationOtp, classify(OpVerifyRegistrationOtp, err))
		}
		if !out.Verified {
			return fail(OpVerifyRegistrationOtp, &RemoteError{
				Status:  http.StatusOK,
				Message: messageOr(out.Message, "OTP verification failed"),
				Kind:    ErrInvalidOtp,
			})
		}

		draft := m.currentDraft(ctx, email)
		draft.OtpVerified = true
		if out.Name != "" {
			draft.Name = out.Name
		}
		if out.Phone != "" {
			draft.Phone = out.Phone
		}
		m.update(func(s *state) bool {
			d := draft
			s.registration = &d
			return true
		})
		m.saveDraft(ctx, draft)

		res := succeed(OpVerifyRegistrationOtp, messageOr(out.Message, "Email verified"))
		res.Next = next
		res.Registration = &draft
		return res
	})
}

// CompleteRegistration sets the password for a verified draft and signs in.
func (m *Manager) CompleteRegistration(ctx context.Context, email, password, confirm string) Result {
	email = normalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return m.finish(fail(OpCompleteRegistration, err))
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return m.finish(fail(OpCompleteRegistration, err))
	}

	draft := m.currentDraft(ctx, email)
	if !draft.OtpVerified || draft.Email != email {
		return m.finish(fail(OpCompleteRegistration, &ValidationError{
			Field:   "email",
			Message: "Please verify your email with the OTP before setting a password",
		}))
	}

	return m.run(OpCompleteRegistration, func() Result {
		resp, err := m.api.CompleteRegistration(ctx, email, password)
		if err != nil {
			return fail(OpCompleteRegistration, classify(OpCompleteRegistration, err))
		}
		m.signIn(ctx, resp, func(s *state) {
			s.registration = nil
		})
		if err := m.pending.Delete(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("remove registration draft failed", slog.Any("error", err))
		}
		return succeed(OpCompleteRegistration, messageOr(resp.Message, "Registration complete"))
	})
}

// AbandonRegistration drops the registration draft.
func (m *Manager) AbandonRegistration(ctx context.Context) Result {
	m.update(func(s *state) bool {
		changed := s.registration != nil
		s.registration = nil
		return changed
	})
	if err := m.pending.Delete(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("remove registration draft failed", slog.Any("error", err))
	}
	return m.finish(succeed(OpAbandonRegistration, "Registration cancelled"))
}

// currentDraft returns the in-memory draft, falling back to the pending
// store, and finally to a fresh draft for email.
func (m *Manager) currentDraft(ctx context.Context, email string) store.PendingRegistration {
	var reg *store.PendingRegistration
	m.mu.Lock()
	if m.state.registration != nil {
		r := *m.state.registration
		reg = &r
	}
	m.mu.Unlock()
	if reg != nil && reg.Email == email {
		return *reg
	}
	if stored := m.loadDraft(ctx); stored != nil && stored.Email == email {
		return *stored
	}
	return store.PendingRegistration{Email: email, CreatedAt: m.now().UTC()}
}

func (m *Manager) saveDraft(ctx context.Context, draft store.PendingRegistration) {
	if err := m.pending.Save(context.WithoutCancel(ctx), draft); err != nil {
		m.logger.Warn("persist registration draft failed", slog.Any("error", err))
	}
}
