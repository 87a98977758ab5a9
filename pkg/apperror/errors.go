package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Error codes returned by the ledger.
const (
	CodeNotFound          = "ACC_001"
	CodeForbidden         = "ACC_002"
	CodeInsufficientFunds = "LED_001"
	CodeInvalidAmount     = "LED_002"
	CodeInvalidOperation  = "LED_003"
	CodeBusy              = "LED_004"
	CodeInvalidToken      = "AUTH_001"
	CodeValidation        = "REQ_001"
	CodeRateLimited       = "REQ_002"
	CodeStoreFailure      = "SYS_001"
)

// ---- Accounts (ACC) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrForbidden() *AppError {
	return New(CodeForbidden, "Account is not owned by the caller", http.StatusForbidden)
}

// ---- Ledger movements (LED) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInvalidOperation(message string) *AppError {
	return New(CodeInvalidOperation, message, http.StatusBadRequest)
}

// ErrRequestIDReused is returned when a request ID already names a different movement.
func ErrRequestIDReused() *AppError {
	return New(CodeInvalidOperation, "Request ID was already used for a different movement", http.StatusBadRequest)
}

// ErrBusy is returned when account locks could not be acquired in time. Callers may retry.
func ErrBusy(err error) *AppError {
	return Wrap(CodeBusy, "Account is busy, retry later", http.StatusConflict, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// ErrStoreFailure wraps a persistence error.
func ErrStoreFailure(err error) *AppError {
	return Wrap(CodeStoreFailure, "Internal storage error", http.StatusInternalServerError, err)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Too many requests, retry later", http.StatusTooManyRequests)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}
