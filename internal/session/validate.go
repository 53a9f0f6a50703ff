package session

import (
	"regexp"
	"strings"

	"github.com/estate-link/estate_link/internal/apiclient"
)

const (
	minLoginOtpLength   = 4
	registrationOtpSize = 6
	phoneDigits         = 10
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	ifscPattern  = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

func required(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: fieldLabel(field) + " is required"}
	}
	return nil
}

func fieldLabel(field string) string {
	switch field {
	case "otp":
		return "OTP"
	case "ifscCode":
		return "IFSC code"
	case "accountNumber":
		return "Account number"
	}
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// ValidateEmail checks basic email syntax.
func ValidateEmail(email string) error {
	if err := checkEmail(email); err != nil {
		return err
	}
	return nil
}

func checkEmail(email string) *ValidationError {
	if err := required("email", email); err != nil {
		err.Kind = ErrInvalidEmail
		return err
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address", Kind: ErrInvalidEmail}
	}
	return nil
}

// ValidatePhone accepts a 10 digit mobile number, optionally prefixed with
// +91 and separated by spaces or dashes.
func ValidatePhone(phone string) error {
	if err := checkPhone(phone); err != nil {
		return err
	}
	return nil
}

func checkPhone(phone string) *ValidationError {
	if err := required("phone", phone); err != nil {
		return err
	}
	digits := normalizePhone(phone)
	if len(digits) != phoneDigits || !allDigits(digits) {
		return &ValidationError{Field: "phone", Message: "Please enter a valid 10 digit phone number"}
	}
	return nil
}

func normalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(p, "+91") && len(p) == phoneDigits+3 {
		p = p[3:]
	}
	return p
}

func validateLoginOtp(otp string) error {
	otp = strings.TrimSpace(otp)
	if len(otp) < minLoginOtpLength || !allDigits(otp) {
		return &ValidationError{Field: "otp", Message: "OTP must be at least 4 digits", Kind: ErrInvalidOtp}
	}
	return nil
}

func validateRegistrationOtp(otp string) error {
	otp = strings.TrimSpace(otp)
	if len(otp) != registrationOtpSize || !allDigits(otp) {
		return &ValidationError{Field: "otp", Message: "OTP must be exactly 6 digits", Kind: ErrInvalidOtp}
	}
	return nil
}

func validatePatch(p apiclient.ProfilePatch) error {
	if p.Phone != nil && *p.Phone != "" {
		if err := ValidatePhone(*p.Phone); err != nil {
			return err
		}
	}
	if p.AccountNumber != nil && p.ConfirmAccountNumber != nil && *p.AccountNumber != *p.ConfirmAccountNumber {
		return &ValidationError{Field: "confirmAccountNumber", Message: "Account numbers do not match"}
	}
	if p.AccountNumber != nil && *p.AccountNumber != "" && !allDigits(*p.AccountNumber) {
		return &ValidationError{Field: "accountNumber", Message: "Account number must contain only digits"}
	}
	if p.IFSCCode != nil && *p.IFSCCode != "" && !ifscPattern.MatchString(strings.ToUpper(*p.IFSCCode)) {
		return &ValidationError{Field: "ifscCode", Message: "Please enter a valid IFSC code"}
	}
	if p.Documents != nil {
		for _, d := range *p.Documents {
			if strings.TrimSpace(d.URL) == "" {
				return &ValidationError{Field: "documents", Message: "Every document needs a URL"}
			}
		}
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
