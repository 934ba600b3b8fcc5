package apperror

import (
	"errors"
	"fmt"
)

// AppError carries an HTTP-mappable code alongside the message so the
// error handler middleware can translate service failures without the
// services importing fiber.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewNotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: 404, Message: fmt.Sprintf(format, args...)}
}

func NewForbidden(format string, args ...interface{}) *AppError {
	return &AppError{Code: 403, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorized(format string, args ...interface{}) *AppError {
	return &AppError{Code: 401, Message: fmt.Sprintf(format, args...)}
}

func NewBadRequest(format string, args ...interface{}) *AppError {
	return &AppError{Code: 400, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: 409, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == 403
}
