package identity

import (
	"time"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// Account is a registered broker as the stub API stores it.
type Account struct {
	ID            string
	Email         string
	Name          string
	Phone         string
	Address       string
	Image         string
	ReraNumber    string
	Documents     []apiclient.Document
	BankName      string
	AccountNumber string
	IFSCCode      string
	RecipientName string
	PasswordHash  []byte
	// OTPLogin is set for accounts created by single-step registration,
	// which sign in with a login code instead of a password.
	OTPLogin      bool
	TokenVersion  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether registration was completed.
func (a Account) HasPassword() bool {
	return len(a.PasswordHash) > 0
}

// CanLoginWithOTP reports whether login codes may be sent to the account.
// Multi-step registrations qualify only once a password is set.
func (a Account) CanLoginWithOTP() bool {
	return a.HasPassword() || a.OTPLogin
}

// Public is the profile as sent over the wire.
func (a Account) Public() apiclient.User {
	u := apiclient.User{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.Name,
		Phone:         a.Phone,
		Address:       a.Address,
		Image:         a.Image,
		ReraNumber:    a.ReraNumber,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		IFSCCode:      a.IFSCCode,
		RecipientName: a.RecipientName,
	}
	if a.AccountNumber != "" {
		u.ConfirmAccountNumber = a.AccountNumber
	}
	if len(a.Documents) > 0 {
		u.Documents = append([]apiclient.Document(nil), a.Documents...)
	}
	return u
}

// Signup is the first registration step.
type Signup struct {
	Name  string
	Email string
	Phone string
	// OTPLogin marks a single-step registration.
	OTPLogin bool
}
