package middleware

import (
	"errors"

	"fundgate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

var fiberErrorCodes = map[int]string{
	fiber.StatusNotFound:              "ROUTE_NOT_FOUND",
	fiber.StatusMethodNotAllowed:      "METHOD_NOT_ALLOWED",
	fiber.StatusRequestEntityTooLarge: "BODY_TOO_LARGE",
}

// ErrorHandler is the global error handler. Typed application errors keep
// their status and code; anything else is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, ok := fiberErrorCodes[fe.Code]
		if !ok {
			code = "HTTP_ERROR"
		}
		return response.Fail(c, fe.Code, code, fe.Message)
	}
	return response.FromError(c, err)
}
