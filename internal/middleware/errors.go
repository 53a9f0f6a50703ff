package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

func asFiberError(err error, target **fiber.Error) bool {
	return errors.As(err, target)
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as {"success":false,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if asFiberError(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(failureResponse{Success: false, Message: message})
}
