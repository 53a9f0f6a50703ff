package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/estate-link/estate_link/internal/auth"
	"github.com/estate-link/estate_link/internal/middleware"
)

// RegisterAuthRoutes wires the OTP, registration, login and password endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, bearer fiber.Handler, cache *redis.Client, loginLimit int) {
	otpLimit := middleware.EmailRateLimit(cache, "otp", loginLimit)
	loginLimiter := middleware.EmailRateLimit(cache, "login", loginLimit)

	r.Post("/sendotp", otpLimit, h.SendOTP)
	r.Post("/verifyotp", loginLimiter, h.VerifyOTP)
	r.Post("/resend-otp", otpLimit, h.ResendOTP)
	r.Post("/login-password", loginLimiter, h.Login)
	r.Post("/logout", bearer, h.Logout)

	r.Post("/register", otpLimit, h.Register)
	register := r.Group("/register")
	register.Post("/step1", otpLimit, h.RegisterStep1)
	register.Post("/verify-otp", loginLimiter, h.VerifyRegistrationOTP)
	register.Post("/complete", h.CompleteRegistration)

	password := r.Group("/auth")
	password.Post("/forgot-password", otpLimit, h.ForgotPassword)
	password.Post("/reset-password", h.ResetPassword)
}
