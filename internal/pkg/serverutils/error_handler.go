package serverutils

import (
	"errors"

	"notechat-be/internal/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware translates errors bubbled up from controllers and
// services into the JSON envelope. AppError codes win; validation errors
// map to 400; anything else is a 500 with a generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return ctx.Status(appErr.Code).JSON(ErrorResponse(appErr.Message))
		}

		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(validationErrs.Error()))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal server error"))
	}
}
