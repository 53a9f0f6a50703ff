package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SendOTP asks the API to email a login code.
func (c *Client) SendOTP(ctx context.Context, email string) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/sendotp", "", emailRequest{Email: email}, &ack)
	return ack, err
}

// VerifyOTP exchanges a login code for a token and profile.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (AuthResponse, error) {
	return c.authenticate(ctx, "/verifyotp", otpRequest{Email: email, OTP: otp})
}

// Register triggers the legacy single-step registration.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/register", "", req, &ack)
	return ack, err
}

// RegisterStep1 starts the multi-step registration.
func (c *Client) RegisterStep1(ctx context.Context, req RegisterRequest) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/register/step1", "", req, &ack)
	return ack, err
}

// VerifyRegistrationOTP confirms the registration code.
func (c *Client) VerifyRegistrationOTP(ctx context.Context, email, otp string) (RegistrationVerification, error) {
	var out RegistrationVerification
	err := c.do(ctx, http.MethodPost, "/register/verify-otp", "", otpRequest{Email: email, OTP: otp}, &out)
	return out, err
}

// CompleteRegistration sets the password and signs the new broker in.
func (c *Client) CompleteRegistration(ctx context.Context, email, password string) (AuthResponse, error) {
	return c.authenticate(ctx, "/register/complete", passwordRequest{Email: email, Password: password})
}

// LoginPassword signs in with email and password.
func (c *Client) LoginPassword(ctx context.Context, email, password string) (AuthResponse, error) {
	return c.authenticate(ctx, "/login-password", passwordRequest{Email: email, Password: password})
}

// Profile fetches the profile of the token's owner.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/user/profile", token, nil, &raw); err != nil {
		return User{}, err
	}
	return decodeUser(http.MethodGet, raw)
}

// UpdateProfile applies a partial update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, patch ProfilePatch) (User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/user/profile", token, patch, &raw); err != nil {
		return User{}, err
	}
	return decodeUser(http.MethodPut, raw)
}

// Logout asks the API to invalidate the token.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/logout", token, struct{}{}, nil)
}

// ResendOTP re-sends a login or registration code.
func (c *Client) ResendOTP(ctx context.Context, email string, purpose Purpose) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/resend-otp", "", resendRequest{Email: email, Purpose: purpose}, &ack)
	return ack, err
}

// ForgotPassword asks the API to email a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/auth/forgot-password", "", emailRequest{Email: email}, &ack)
	return ack, err
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (Ack, error) {
	var ack Ack
	err := c.do(ctx, http.MethodPost, "/auth/reset-password", "", resetRequest{Token: token, NewPassword: newPassword}, &ack)
	return ack, err
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", in, &out); err != nil {
		return AuthResponse{}, err
	}
	if out.Token == "" {
		return AuthResponse{}, fmt.Errorf("%w: POST %s: response carried no token", ErrTransport, path)
	}
	if out.User.ID == "" {
		return AuthResponse{}, fmt.Errorf("%w: POST %s: response carried no user", ErrTransport, path)
	}
	return out, nil
}

// decodeUser accepts {"user": {...}}, {"data": {...}} or a bare user object.
func decodeUser(method string, raw json.RawMessage) (User, error) {
	var envelope struct {
		User *User `json:"user"`
		Data *User `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return User{}, fmt.Errorf("%w: decode %s /user/profile: %v", ErrTransport, method, err)
	}
	switch {
	case envelope.User != nil:
		return *envelope.User, nil
	case envelope.Data != nil:
		return *envelope.Data, nil
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return User{}, fmt.Errorf("%w: decode %s /user/profile: %v", ErrTransport, method, err)
	}
	if user.ID == "" {
		return User{}, fmt.Errorf("%w: %s /user/profile: response carried no user", ErrTransport, method)
	}
	return user, nil
}
