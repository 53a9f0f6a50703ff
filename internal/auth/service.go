package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/config"
	"github.com/estate-link/estate_link/internal/identity"
	"github.com/estate-link/estate_link/internal/notification"
	"github.com/estate-link/estate_link/internal/session"
)

const (
	otpDigits         = 6
	verifiedMarkerTTL = 30 * time.Minute
	// Reset records outlive their validity so an expired token can be told
	// apart from an unknown one.
	resetRecordGrace = 24 * time.Hour
)

var (
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrNotVerified        = errors.New("email has not been verified")
	ErrAccountNotFound    = errors.New("no account found for this email")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrWeakPassword       = errors.New("weak password")
	ErrRegistrationClosed = errors.New("registration already completed for this email")
	ErrRegistrationOpen   = errors.New("registration has not been completed")
)

// Session is an issued bearer token and the account it belongs to.
type Session struct {
	Token   string
	Account identity.Account
}

type resetRecord struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service implements the stub API's credential flows.
type Service struct {
	cfg      config.Config
	ids      *identity.Service
	codes    CodeStore
	tokens   *Issuer
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

func NewService(cfg config.Config, ids *identity.Service, codes CodeStore, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		ids:      ids,
		codes:    codes,
		tokens:   NewIssuer(cfg.JWTSecret, cfg.AppName, cfg.AccessTokenTTL),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newCode:  randomCode,
	}
}

func otpKey(purpose apiclient.Purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func verifiedKey(email string) string { return "register:verified:" + email }

func resetKey(token string) string { return "reset:" + token }

// SendLoginOTP emails a login code to an existing account.
func (s *Service) SendLoginOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	account, err := s.ids.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !account.CanLoginWithOTP() {
		return ErrRegistrationOpen
	}
	return s.sendOTP(ctx, apiclient.PurposeLogin, email)
}

// VerifyLoginOTP consumes a login code and issues a token.
func (s *Service) VerifyLoginOTP(ctx context.Context, email, code string) (Session, error) {
	email = normalizeEmail(email)
	if err := s.checkOTP(ctx, apiclient.PurposeLogin, email, code); err != nil {
		return Session{}, err
	}
	account, err := s.ids.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if !account.CanLoginWithOTP() {
		return Session{}, ErrRegistrationOpen
	}
	return s.issue(account)
}

// RegisterLegacy creates the account and sends a login code.
func (s *Service) RegisterLegacy(ctx context.Context, in identity.Signup) error {
	in.OTPLogin = true
	account, err := s.ids.Register(ctx, in)
	if err != nil {
		return err
	}
	return s.sendOTP(ctx, apiclient.PurposeLogin, account.Email)
}

// StartRegistration creates the account without a password and sends a
// registration code.
func (s *Service) StartRegistration(ctx context.Context, in identity.Signup) error {
	in.OTPLogin = false
	account, err := s.ids.Register(ctx, in)
	if err != nil {
		return err
	}
	return s.sendOTP(ctx, apiclient.PurposeRegistration, account.Email)
}

// VerifyRegistrationOTP consumes a registration code and marks the email as
// verified so the password can be set.
func (s *Service) VerifyRegistrationOTP(ctx context.Context, email, code string) (identity.Account, error) {
	email = normalizeEmail(email)
	if err := s.checkOTP(ctx, apiclient.PurposeRegistration, email, code); err != nil {
		return identity.Account{}, err
	}
	account, err := s.ids.FindByEmail(ctx, email)
	if err != nil {
		return identity.Account{}, err
	}
	if err := s.codes.Set(ctx, verifiedKey(email), account.ID, verifiedMarkerTTL); err != nil {
		return identity.Account{}, err
	}
	return account, nil
}

// CompleteRegistration sets the password of a verified account and signs it in.
func (s *Service) CompleteRegistration(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if _, err := s.codes.Get(ctx, verifiedKey(email)); err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return Session{}, ErrNotVerified
		}
		return Session{}, err
	}
	if err := checkPassword(password); err != nil {
		return Session{}, err
	}
	account, err := s.ids.SetPassword(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	if err := s.codes.Delete(ctx, verifiedKey(email)); err != nil {
		s.logger.Warn("clear verified marker failed", slog.String("email", email), slog.Any("error", err))
	}
	return s.issue(account)
}

// Login checks an email and password and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	account, err := s.ids.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issue(account)
}

// Logout invalidates every token of the account.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	return s.ids.RevokeTokens(ctx, accountID)
}

// Resend issues a fresh code for purpose.
func (s *Service) Resend(ctx context.Context, email string, purpose apiclient.Purpose) error {
	email = normalizeEmail(email)
	account, err := s.ids.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if purpose == apiclient.PurposeRegistration && account.HasPassword() {
		return ErrRegistrationClosed
	}
	if purpose == apiclient.PurposeLogin && !account.CanLoginWithOTP() {
		return ErrRegistrationOpen
	}
	return s.sendOTP(ctx, purpose, email)
}

// ForgotPassword emails a reset token when the account exists. Unknown
// emails succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	account, err := s.ids.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) || (err == nil && !account.HasPassword()) {
		s.logger.Info("password reset requested for unknown account", slog.String("email", email))
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	record, err := json.Marshal(resetRecord{Email: email, ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL).UTC()})
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, resetKey(token), string(record), s.cfg.ResetTokenTTL+resetRecordGrace); err != nil {
		return err
	}
	return s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindPasswordReset,
		Destination: email,
		Subject:     "Reset your password",
		Body:        token,
	})
}

// ResetPassword consumes a reset token, sets the new password and revokes
// existing sessions.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	raw, err := s.codes.Get(ctx, resetKey(token))
	if errors.Is(err, ErrCodeNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	var record resetRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return ErrInvalidResetToken
	}
	if !s.now().Before(record.ExpiresAt) {
		return ErrResetTokenExpired
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	if _, err := s.codes.Take(ctx, resetKey(token)); err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	account, err := s.ids.SetPassword(ctx, record.Email, password)
	if err != nil {
		return err
	}
	return s.ids.RevokeTokens(ctx, account.ID)
}

// Authenticate resolves a bearer token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.Account, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return identity.Account{}, err
	}
	account, err := s.ids.Get(ctx, claims.Subject)
	if err != nil {
		return identity.Account{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	if account.TokenVersion != claims.Version {
		return identity.Account{}, fmt.Errorf("%w: token version invalidated", ErrInvalidToken)
	}
	return account, nil
}

func (s *Service) issue(account identity.Account) (Session, error) {
	token, err := s.tokens.Issue(account)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Account: account}, nil
}

func (s *Service) sendOTP(ctx context.Context, purpose apiclient.Purpose, email string) error {
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.codes.Set(ctx, otpKey(purpose, email), code, s.cfg.OTPTTL); err != nil {
		return err
	}
	kind := notification.KindLoginOTP
	if purpose == apiclient.PurposeRegistration {
		kind = notification.KindRegistrationOTP
	}
	return s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: email,
		Subject:     "Your verification code",
		Body:        code,
	})
}

func (s *Service) checkOTP(ctx context.Context, purpose apiclient.Purpose, email, code string) error {
	key := otpKey(purpose, email)
	want, err := s.codes.Get(ctx, key)
	if errors.Is(err, ErrCodeNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(code))) != 1 {
		return ErrInvalidOTP
	}
	if _, err := s.codes.Take(ctx, key); err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	return nil
}

func checkPassword(password string) error {
	if err := session.ValidatePassword(password); err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrWeakPassword, verr.Message)
		}
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
