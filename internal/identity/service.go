package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/estate-link/estate_link/internal/apiclient"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidProfile     = errors.New("invalid profile")
)

// Service manages broker accounts.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates an account without a password. Re-registering an email
// whose registration was never completed refreshes its name and phone.
func (s *Service) Register(ctx context.Context, in Signup) (Account, error) {
	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Phone) == "" {
		return Account{}, fmt.Errorf("%w: name, email and phone are required", ErrInvalidProfile)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.HasPassword():
		return Account{}, ErrEmailTaken
	case err == nil:
		existing.Name = strings.TrimSpace(in.Name)
		existing.Phone = strings.TrimSpace(in.Phone)
		existing.OTPLogin = in.OTPLogin
		existing.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, existing); err != nil {
			return Account{}, err
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return Account{}, err
	}

	now := s.now().UTC()
	account := Account{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		OTPLogin:  in.OTPLogin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// SetPassword stores a bcrypt hash of password.
func (s *Service) SetPassword(ctx context.Context, email, password string) (Account, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	account.PasswordHash = hash
	account.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Authenticate verifies an email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	account, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if !account.HasPassword() {
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// Get returns the account with id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail returns the account registered with email.
func (s *Service) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.FindByEmail(ctx, normalizeEmail(email))
}

// UpdateProfile applies patch to the account. Nil fields are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch apiclient.ProfilePatch) (Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if patch.AccountNumber != nil && patch.ConfirmAccountNumber != nil && *patch.AccountNumber != *patch.ConfirmAccountNumber {
		return Account{}, fmt.Errorf("%w: account numbers do not match", ErrInvalidProfile)
	}
	if patch.Empty() {
		return account, nil
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&account.Name, patch.Name)
	set(&account.Phone, patch.Phone)
	set(&account.Address, patch.Address)
	set(&account.Image, patch.Image)
	set(&account.ReraNumber, patch.ReraNumber)
	set(&account.BankName, patch.BankName)
	set(&account.AccountNumber, patch.AccountNumber)
	set(&account.IFSCCode, patch.IFSCCode)
	set(&account.RecipientName, patch.RecipientName)
	if patch.IFSCCode != nil {
		account.IFSCCode = strings.ToUpper(account.IFSCCode)
	}
	if patch.Documents != nil {
		account.Documents = append([]apiclient.Document(nil), (*patch.Documents)...)
		for i := range account.Documents {
			if account.Documents[i].ID == "" {
				account.Documents[i].ID = uuid.NewString()
			}
		}
	}
	account.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// RevokeTokens bumps the token version so every issued token stops validating.
func (s *Service) RevokeTokens(ctx context.Context, id string) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	account.TokenVersion++
	account.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, account)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
