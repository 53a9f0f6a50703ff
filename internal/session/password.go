package session

import (
	"strings"
	"unicode"
)

const minPasswordLength = 8

// PasswordSpecials is the set of symbols that satisfy the special character rule.
const PasswordSpecials = "!@#$%^&*(),.?\":{}|<>_-+=[]\\/~;'`"

// PasswordChecks reports each password rule independently so a form can
// tick them off as the user types.
type PasswordChecks struct {
	MinLength bool
	Lowercase bool
	Uppercase bool
	Digit     bool
	Special   bool
}

type passwordRule struct {
	ok      func(PasswordChecks) bool
	message string
}

var passwordRules = []passwordRule{
	{func(c PasswordChecks) bool { return c.MinLength }, "Password must be at least 8 characters long"},
	{func(c PasswordChecks) bool { return c.Lowercase }, "Password must contain at least one lowercase letter"},
	{func(c PasswordChecks) bool { return c.Uppercase }, "Password must contain at least one uppercase letter"},
	{func(c PasswordChecks) bool { return c.Digit }, "Password must contain at least one number"},
	{func(c PasswordChecks) bool { return c.Special }, "Password must contain at least one special character"},
}

// CheckPassword evaluates every rule against password.
func CheckPassword(password string) PasswordChecks {
	checks := PasswordChecks{MinLength: len([]rune(password)) >= minPasswordLength}
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			checks.Lowercase = true
		case unicode.IsUpper(r):
			checks.Uppercase = true
		case unicode.IsDigit(r):
			checks.Digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			checks.Special = true
		}
	}
	return checks
}

// OK reports whether every rule passes.
func (c PasswordChecks) OK() bool {
	return c.MinLength && c.Lowercase && c.Uppercase && c.Digit && c.Special
}

// Failures lists the messages of every failing rule in rule order.
func (c PasswordChecks) Failures() []string {
	var out []string
	for _, rule := range passwordRules {
		if !rule.ok(c) {
			out = append(out, rule.message)
		}
	}
	return out
}

// ValidatePassword returns the first failing rule as an ErrWeakPassword
// validation error.
func ValidatePassword(password string) error {
	failures := CheckPassword(password).Failures()
	if len(failures) == 0 {
		return nil
	}
	return &ValidationError{Field: "password", Message: failures[0], Kind: ErrWeakPassword}
}

func validateNewPassword(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if password != confirm {
		return &ValidationError{Field: "confirmPassword", Message: "Passwords do not match", Kind: ErrPasswordMismatch}
	}
	return nil
}
