// Package response writes the JSON envelope every endpoint answers with.
// Errors always carry a machine-readable code in error.details.code.
package response

import (
	"errors"

	"fundgate-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL"
	CodeInvalidBody     = "INVALID_BODY"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:    fiber.StatusBadRequest,
	apperr.KindAuthorization: fiber.StatusForbidden,
	apperr.KindPolicy:        fiber.StatusForbidden,
	apperr.KindConflict:      fiber.StatusConflict,
	apperr.KindNotFound:      fiber.StatusNotFound,
	apperr.KindInternal:      fiber.StatusInternalServerError,
}

func send(c *fiber.Ctx, status int, message string, data, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(status).JSON(SuccessBody{Status: "success", Message: message, Data: data, Metadata: metadata})
}

func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusOK, message, data, metadata)
}

func Created(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	return send(c, fiber.StatusCreated, message, data, metadata)
}

// Error writes the error envelope as given. Prefer Fail or FromError so the
// body carries a code.
func Error(c *fiber.Ctx, message string, statusCode int, details map[string]interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: "error",
		Error:  ErrorDetail{Message: message, StatusCode: statusCode, Details: details},
	})
}

// Fail writes an error with code and optional extra details.
func Fail(c *fiber.Ctx, statusCode int, code, message string, extra ...map[string]interface{}) error {
	details := map[string]interface{}{"code": code}
	for _, m := range extra {
		for k, v := range m {
			details[k] = v
		}
	}
	return Error(c, message, statusCode, details)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusUnauthorized, CodeUnauthenticated, message)
}

func InvalidBody(c *fiber.Ctx) error {
	return Fail(c, fiber.StatusBadRequest, CodeInvalidBody, "Invalid request body")
}

// FromError maps an apperr kind to its status. Internal and unknown errors
// are logged and surfaced with a generic message only.
func FromError(c *fiber.Ctx, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		log.Error().Err(err).Str("trace_id", traceID(c)).Str("path", c.Path()).Msg("request failed")
		return Fail(c, fiber.StatusInternalServerError, CodeInternal, "Internal Server Error")
	}
	return Fail(c, kindStatus[e.Kind], e.Code, e.Message, e.Details)
}

func traceID(c *fiber.Ctx) string {
	if id, ok := c.Locals("trace_id").(string); ok {
		return id
	}
	return ""
}
