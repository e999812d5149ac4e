package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	CodePastEvent          = "PAST_EVENT"
	CodeDuplicateBooking   = "DUPLICATE_BOOKING"
	CodeTrainerUnavailable = "TRAINER_UNAVAILABLE"
	CodeAlreadyCompleted   = "ALREADY_COMPLETED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeLockTimeout        = "CAPACITY_LOCK_TIMEOUT"
)

// statusByCode is the HTTP status every code is rendered with.
var statusByCode = map[string]int{
	CodeNotFound:           http.StatusNotFound,
	CodeValidation:         http.StatusUnprocessableEntity,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeConflict:           http.StatusConflict,
	CodeInternal:           http.StatusInternalServerError,
	CodeBadRequest:         http.StatusBadRequest,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeInvalidInput:       http.StatusBadRequest,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodePastEvent:          http.StatusUnprocessableEntity,
	CodeDuplicateBooking:   http.StatusConflict,
	CodeTrainerUnavailable: http.StatusConflict,
	CodeAlreadyCompleted:   http.StatusConflict,
	CodeInvalidTransition:  http.StatusConflict,
	CodeLockTimeout:        http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status for code, 500 for unknown codes.
func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Retryable  bool           `json:"retryable,omitempty"`
	Err        error          `json:"-"`
}

type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) StatusCode() int { return e.HTTPStatus }

// Response is the body WriteError renders.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details, Retryable: e.Retryable}
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// FromResponse rebuilds an AppError from a rendered body, e.g. on the client side.
func FromResponse(body ErrorResponse, httpStatus int) *AppError {
	return &AppError{
		Code:       body.Code,
		Message:    body.Message,
		HTTPStatus: httpStatus,
		Details:    body.Details,
		Retryable:  body.Retryable,
	}
}

func coded(code, message string) *AppError {
	return New(code, message, StatusFor(code))
}

func NotFound(resource string) *AppError {
	return coded(CodeNotFound, resource+" not found")
}

func NotFoundWithID(resource, id string) *AppError {
	e := NotFound(resource)
	e.Details = map[string]any{"resource": resource, "id": id}
	return e
}

func Validation(message string, details map[string]any) *AppError {
	e := coded(CodeValidation, message)
	e.Details = details
	return e
}

func InvalidInput(message string) *AppError { return coded(CodeInvalidInput, message) }
func Unauthorized(message string) *AppError { return coded(CodeUnauthorized, message) }
func Forbidden(message string) *AppError { return coded(CodeForbidden, message) }
func Conflict(message string) *AppError { return coded(CodeConflict, message) }
func Timeout(message string) *AppError { return coded(CodeTimeout, message) }

func Internal(message string, err error) *AppError {
	e := coded(CodeInternal, message)
	e.Err = err
	return e
}

func RateLimited() *AppError {
	e := coded(CodeRateLimited, "Rate limit exceeded")
	e.Retryable = true
	return e
}

func PastEvent(message string) *AppError { return coded(CodePastEvent, message) }

func DuplicateBooking(occurrenceID string) *AppError {
	e := coded(CodeDuplicateBooking, "User already holds an active booking for this occurrence")
	e.Details = map[string]any{"occurrence_id": occurrenceID}
	return e
}

func TrainerUnavailable(message string) *AppError { return coded(CodeTrainerUnavailable, message) }

func AlreadyCompleted(bookingID string) *AppError {
	e := coded(CodeAlreadyCompleted, "Booking is already completed")
	e.Details = map[string]any{"booking_id": bookingID}
	return e
}

func InvalidTransition(message string, err error) *AppError {
	e := coded(CodeInvalidTransition, message)
	e.Err = err
	return e
}

// LockTimeout signals that the per-slot lock could not be acquired in time.
// Clients may retry the request.
func LockTimeout(err error) *AppError {
	e := coded(CodeLockTimeout, "The slot is busy, please retry")
	e.Retryable = true
	e.Err = err
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
