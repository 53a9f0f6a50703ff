package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/identity"
	"github.com/estate-link/estate_link/internal/session"
)

// Handler exposes the OTP, registration, login and password endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type emailRequest struct {
	Email string `json:"email"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type signupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email   string            `json:"email"`
	Purpose apiclient.Purpose `json:"purpose"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sessionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Token   string         `json:"token"`
	User    apiclient.User `json:"user"`
}

type verificationResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}

// SendOTP handles POST /sendotp.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	if err := h.svc.SendLoginOTP(c.UserContext(), req.Email); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: fmt.Sprintf("OTP sent to %s", normalizeEmail(req.Email))})
}

// VerifyOTP handles POST /verifyotp.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	sess, err := h.svc.VerifyLoginOTP(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{Success: true, Message: "Logged in successfully", Token: sess.Token, User: sess.Account.Public()})
}

// Register handles the single-step POST /register.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req signupRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkSignup(req); err != nil {
		return err
	}
	signup := identity.Signup{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := h.svc.RegisterLegacy(c.UserContext(), signup); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(ackResponse{Success: true, Message: fmt.Sprintf("Registered. OTP sent to %s", normalizeEmail(req.Email))})
}

// RegisterStep1 handles POST /register/step1.
func (h *Handler) RegisterStep1(c *fiber.Ctx) error {
	var req signupRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkSignup(req); err != nil {
		return err
	}
	signup := identity.Signup{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := h.svc.StartRegistration(c.UserContext(), signup); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: fmt.Sprintf("OTP sent to %s", normalizeEmail(req.Email))})
}

// VerifyRegistrationOTP handles POST /register/verify-otp.
func (h *Handler) VerifyRegistrationOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	account, err := h.svc.VerifyRegistrationOTP(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(verificationResponse{
		Success:  true,
		Message:  "Email verified",
		Name:     account.Name,
		Phone:    account.Phone,
		Verified: true,
	})
}

// CompleteRegistration handles POST /register/complete.
func (h *Handler) CompleteRegistration(c *fiber.Ctx) error {
	var req passwordRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	sess, err := h.svc.CompleteRegistration(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse{Success: true, Message: "Registration complete", Token: sess.Token, User: sess.Account.Public()})
}

// Login handles POST /login-password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req passwordRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password are required")
	}
	sess, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{Success: true, Message: "Logged in successfully", Token: sess.Token, User: sess.Account.Public()})
}

// Logout handles POST /logout. It runs behind the bearer middleware.
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid, _ := c.Locals(identity.LocalUserID).(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "Logged out"})
}

// ResendOTP handles POST /resend-otp.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req resendRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	if req.Purpose == "" {
		req.Purpose = apiclient.PurposeLogin
	}
	if !req.Purpose.Valid() {
		return fiber.NewError(http.StatusBadRequest, "purpose must be login or registration")
	}
	if err := h.svc.Resend(c.UserContext(), req.Email, req.Purpose); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: fmt.Sprintf("A new OTP was sent to %s", normalizeEmail(req.Email))})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	if err := h.svc.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "If an account exists for this email, a reset link has been sent"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if err := h.svc.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return toHTTP(err)
	}
	return c.Status(http.StatusOK).JSON(ackResponse{Success: true, Message: "Password reset successful. Please log in"})
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func checkEmail(email string) error {
	if err := session.ValidateEmail(normalizeEmail(email)); err != nil {
		return fiber.NewError(http.StatusBadRequest, "a valid email is required")
	}
	return nil
}

func checkSignup(req signupRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(http.StatusBadRequest, "name is required")
	}
	if err := checkEmail(req.Email); err != nil {
		return err
	}
	if err := session.ValidatePhone(req.Phone); err != nil {
		return fiber.NewError(http.StatusBadRequest, "a valid 10 digit phone number is required")
	}
	return nil
}

// toHTTP maps service errors onto status codes. Messages are safe to show.
func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "No account found for this email")
	case errors.Is(err, ErrInvalidOTP):
		return fiber.NewError(http.StatusBadRequest, "Invalid or expired OTP")
	case errors.Is(err, ErrRegistrationOpen):
		return fiber.NewError(http.StatusForbidden, "Please complete your registration first")
	case errors.Is(err, ErrNotVerified):
		return fiber.NewError(http.StatusBadRequest, "Please verify your email with the OTP first")
	case errors.Is(err, identity.ErrEmailTaken), errors.Is(err, ErrRegistrationClosed):
		return fiber.NewError(http.StatusConflict, "Email already registered")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrResetTokenExpired):
		return fiber.NewError(http.StatusGone, "reset token expired")
	case errors.Is(err, ErrInvalidResetToken):
		return fiber.NewError(http.StatusBadRequest, "invalid reset token")
	case errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, strings.TrimPrefix(err.Error(), ErrWeakPassword.Error()+": "))
	case errors.Is(err, identity.ErrInvalidProfile):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidToken), errors.Is(err, identity.ErrNotFound):
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return fiber.NewError(http.StatusInternalServerError, "internal server error")
}
