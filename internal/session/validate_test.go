package session

import (
	"errors"
	"testing"

	"github.com/estate-link/estate_link/internal/apiclient"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "broker.one+tag@estate.example.in"}
	invalid := []string{"", "   ", "plain", "a@b", "a b@c.com", "@c.com"}

	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) = %v", e, err)
		}
	}
	for _, e := range invalid {
		err := ValidateEmail(e)
		if !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("ValidateEmail(%q) = %v, want invalid email", e, err)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"9876543210", "+919876543210", "98765 43210", "+91 98765-43210"}
	invalid := []string{"", "12345", "98765432101", "98765abcde", "+1 9876543210"}

	for _, p := range valid {
		if err := ValidatePhone(p); err != nil {
			t.Errorf("ValidatePhone(%q) = %v", p, err)
		}
	}
	for _, p := range invalid {
		if err := ValidatePhone(p); err == nil {
			t.Errorf("ValidatePhone(%q) succeeded", p)
		}
	}
}

func TestOtpLengths(t *testing.T) {
	if err := validateLoginOtp("1234"); err != nil {
		t.Fatalf("4 digit login otp rejected: %v", err)
	}
	for _, otp := range []string{"123", "12a4", "", "١٢٣٤"} {
		if err := validateLoginOtp(otp); !errors.Is(err, ErrInvalidOtp) {
			t.Errorf("validateLoginOtp(%q) = %v", otp, err)
		}
	}
	if err := validateRegistrationOtp("123456"); err != nil {
		t.Fatalf("6 digit registration otp rejected: %v", err)
	}
	for _, otp := range []string{"12345", "1234567"} {
		if err := validateRegistrationOtp(otp); !errors.Is(err, ErrInvalidOtp) {
			t.Errorf("validateRegistrationOtp(%q) = %v", otp, err)
		}
	}
}

func TestValidatePatch(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name  string
		patch apiclient.ProfilePatch
		field string
	}{
		{"empty", apiclient.ProfilePatch{}, ""},
		{"good bank details", apiclient.ProfilePatch{AccountNumber: str("001234567890"), ConfirmAccountNumber: str("001234567890"), IFSCCode: str("SBIN0001234")}, ""},
		{"lowercase ifsc", apiclient.ProfilePatch{IFSCCode: str("sbin0001234")}, ""},
		{"bad phone", apiclient.ProfilePatch{Phone: str("12345")}, "phone"},
		{"account mismatch", apiclient.ProfilePatch{AccountNumber: str("111"), ConfirmAccountNumber: str("112")}, "confirmAccountNumber"},
		{"non numeric account", apiclient.ProfilePatch{AccountNumber: str("12AB")}, "accountNumber"},
		{"bad ifsc", apiclient.ProfilePatch{IFSCCode: str("SBIN1001234")}, "ifscCode"},
		{"document without url", apiclient.ProfilePatch{Documents: &[]apiclient.Document{{Name: "PAN"}}}, "documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePatch(tt.patch)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected error on %s, got %v", tt.field, err)
			}
		})
	}
}
