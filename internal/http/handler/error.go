package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errUnauthenticated = errors.New("authentication required")

// requestError is a malformed request detected before any service call.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(code, message string) error {
	return &requestError{code: code, message: message}
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a request or service failure onto the error envelope.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		reqErr *requestError
		valErr *service.ValidationError
		nfErr  *service.NotFoundError
	)
	switch {
	case errors.As(err, &reqErr):
		return writeError(c, fiber.StatusBadRequest, reqErr.code, reqErr.message)
	case errors.Is(err, errUnauthenticated):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	case errors.Is(err, service.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "action not allowed")
	case errors.As(err, &valErr):
		return writeError(c, fiber.StatusUnprocessableEntity, "VALIDATION_ERROR", valErr.Error())
	case errors.As(err, &nfErr):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", nfErr.Entity+" not found")
	}

	slog.ErrorContext(c.UserContext(), "request failed",
		"request_id", requestIDFromCtx(c), "path", c.Path(), "error", err)

	switch {
	case errors.Is(err, service.ErrStorage):
		return writeError(c, fiber.StatusBadGateway, "STORAGE_ERROR", "file storage unavailable")
	case errors.Is(err, service.ErrTransaction):
		return writeError(c, fiber.StatusInternalServerError, "TRANSACTION_ERROR", "the change was not saved")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// authorize runs the access policy for the current actor.
func authorize(c *fiber.Ctx, action policy.Action, doc *model.Document) (*model.Actor, error) {
	actor := middleware.ActorFrom(c)
	if actor == nil {
		return nil, errUnauthenticated
	}
	if d := policy.Decide(actor, action, doc); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", service.ErrForbidden, d.Reason)
	}
	return actor, nil
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusUnprocessableEntity:
			return writeError(c, status, "VALIDATION_ERROR", "unprocessable request")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
