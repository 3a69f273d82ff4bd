package serverutils

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ApiError is the structured error every service returns upward. The
// middleware below renders it into the response envelope.
type ApiError struct {
	Code    int
	Message string
	// Internal keeps the underlying cause for logs; it is surfaced to
	// clients only outside production.
	Internal error
}

func (e *ApiError) Error() string {
	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Internal
}

func NewBadRequestError(message string) *ApiError {
	return &ApiError{Code: fiber.StatusBadRequest, Message: message}
}

func NewUnauthorizedError(message string) *ApiError {
	return &ApiError{Code: fiber.StatusUnauthorized, Message: message}
}

func NewForbiddenError(message string) *ApiError {
	return &ApiError{Code: fiber.StatusForbidden, Message: message}
}

func NewNotFoundError(message string) *ApiError {
	return &ApiError{Code: fiber.StatusNotFound, Message: message}
}

func NewInternalError(message string, cause error) *ApiError {
	return &ApiError{Code: fiber.StatusInternalServerError, Message: message, Internal: cause}
}

type Response[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// {success, code, message, data} envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	isProd := os.Getenv("GO_ENV") == "production"

	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var apiErr *ApiError
		if errors.As(err, &apiErr) {
			message := apiErr.Message
			if apiErr.Internal != nil && !isProd {
				message = fmt.Sprintf("%s: %v", apiErr.Message, apiErr.Internal)
			}
			return ctx.Status(apiErr.Code).JSON(fiber.Map{
				"success": false,
				"code":    apiErr.Code,
				"message": message,
				"data":    nil,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"success": false,
				"code":    fiberErr.Code,
				"message": fiberErr.Message,
				"data":    nil,
			})
		}

		message := "Internal server error"
		if !isProd {
			message = err.Error()
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"code":    fiber.StatusInternalServerError,
			"message": message,
			"data":    nil,
		})
	}
}

var validate = validator.New()

// ValidateRequest checks struct tags on a request DTO and folds violations
// into one bad-request error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return NewInternalError("validation setup error", err)
	}

	var fields []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	return NewBadRequestError("invalid request: " + strings.Join(fields, ", "))
}
