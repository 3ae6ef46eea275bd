package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/errs"
)

// SuccessResp sends a successful API response
func SuccessResp(c *fiber.Ctx, data any, meta ...ApiResponseMeta) error {
	return SuccessCodeResp(c, fiber.StatusOK, data, meta...)
}

// CreatedResp sends a 201 Created response
func CreatedResp(c *fiber.Ctx, data any) error {
	return SuccessCodeResp(c, fiber.StatusCreated, data)
}

// SuccessCodeResp sends a successful response with a specific status code
func SuccessCodeResp(c *fiber.Ctx, status int, data any, meta ...ApiResponseMeta) error {
	resp := ApiResponse{
		Success: true,
		Data:    data,
	}
	if len(meta) > 0 {
		resp.Meta = &meta[0]
	}
	return c.Status(status).JSON(&resp)
}

// ErrorResp sends an error API response
func ErrorResp(c *fiber.Ctx, err ApiError, meta ...ApiResponseMeta) error {
	resp := ApiResponse{
		Success: false,
		Error:   &err,
	}
	if len(meta) > 0 {
		resp.Meta = &meta[0]
	}
	status := fiber.StatusBadRequest
	if err.Status != 0 {
		status = err.Status
	}
	return c.Status(status).JSON(&resp)
}

// ErrorCodeResp sends an error response with a specific status code
func ErrorCodeResp(c *fiber.Ctx, status int, message ...string) error {
	msg := "API Error"
	if len(message) > 0 {
		msg = message[0]
	}
	return ErrorResp(c, ApiError{
		Status:  status,
		Message: msg,
	})
}

// ErrorBadRequestResp sends a 400 Bad Request error response
func ErrorBadRequestResp(c *fiber.Ctx, message ...string) error {
	return ErrorCodeResp(c, fiber.StatusBadRequest, message...)
}

// ErrorInternalServerErrorResp sends a 500 Internal Server Error response
func ErrorInternalServerErrorResp(c *fiber.Ctx, message ...string) error {
	return ErrorCodeResp(c, fiber.StatusInternalServerError, message...)
}

// StatusFor maps a typed failure to its HTTP status
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation, errs.KindIntegrity:
		return fiber.StatusBadRequest
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorFromErr renders a provider error. Typed failures keep their message
// and kind; anything else becomes a 500 with the fallback message so store
// internals are not leaked.
func ErrorFromErr(c *fiber.Ctx, err error, fallback string) error {
	var typed *errs.Error
	if !errors.As(err, &typed) {
		return ErrorInternalServerErrorResp(c, fallback)
	}
	return ErrorResp(c, ApiError{
		Code:    typed.Kind.String(),
		Status:  StatusFor(err),
		Message: typed.Message,
	})
}
