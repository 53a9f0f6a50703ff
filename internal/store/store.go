package store

import (
	"context"
	"errors"
	"time"
)

const (
	// TokenKey is the storage key of the bearer token.
	TokenKey = "broker:auth:token"
	// PendingKey is the storage key of the in-progress registration.
	PendingKey = "broker:register:pending"

	// DefaultPendingTTL bounds how long an abandoned registration draft survives.
	DefaultPendingTTL = 30 * time.Minute
)

// ErrCorrupt is returned when stored data cannot be decoded.
var ErrCorrupt = errors.New("stored value is corrupt")

// PendingRegistration is the registration draft kept between the OTP steps.
type PendingRegistration struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	OtpVerified bool      `json:"otpVerified"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TokenStore persists the bearer token across restarts. Load returns an
// empty string and no error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// PendingStore keeps the registration draft for a short time. Load returns
// nil and no error when there is no draft or it expired.
type PendingStore interface {
	Load(ctx context.Context) (*PendingRegistration, error)
	Save(ctx context.Context, pending PendingRegistration) error
	Delete(ctx context.Context) error
}
