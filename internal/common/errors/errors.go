package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"

	// Ошибки bootstrap-сессии
	ErrCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeUnknownIdentity    ErrorCode = "UNKNOWN_IDENTITY"
	ErrCodeChatLinkOrphan     ErrorCode = "CHAT_LINK_ORPHAN"
	ErrCodeUserBlocked        ErrorCode = "USER_BLOCKED"
	ErrCodeOnboardingRequired ErrorCode = "ONBOARDING_REQUIRED"
	ErrCodeSessionLoading     ErrorCode = "SESSION_LOADING"

	// Ошибки внешних API
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
)

// SessionRetryMessage is the only text a user ever sees for a failed bootstrap.
const SessionRetryMessage = "Couldn't load your session, retry"

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"-"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError by code, so errors.Is(err, errors.New(code, "")) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// IsSessionFatal reports whether the error ends the session bootstrap.
func (e *AppError) IsSessionFatal() bool {
	return e.Code == ErrCodeStorageUnavailable || e.Code == ErrCodeUnknownIdentity
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeBadRequest
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden || e.Code == ErrCodeUserBlocked
}

func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeStorageUnavailable ||
		e.Code == ErrCodeTelegramAPI
}

// Public returns a copy safe to render to clients: session-fatal and internal
// failures collapse to the generic retry message, details are dropped.
func (e *AppError) Public() *AppError {
	out := &AppError{Code: e.Code, Message: e.Message, Timestamp: e.Timestamp, RequestID: e.RequestID}
	switch {
	case e.IsSessionFatal():
		out.Message = SessionRetryMessage
	case e.IsInternal():
		out.Code = ErrCodeInternal
		out.Message = "Internal server error"
	case e.IsValidation():
		out.Details = e.Details
	}
	return out
}

// WithDetail добавляет детальную информацию к ошибке
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

// New создает новую ошибку приложения
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason))
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason))
}

func NewStorageUnavailableError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageUnavailable, fmt.Sprintf("Storage operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewUnknownIdentityError(reason string) *AppError {
	return New(ErrCodeUnknownIdentity, fmt.Sprintf("Launch identity is incomplete: %s", reason))
}

// AsAppError приводит ошибку к AppError, проходя по цепочке обёрток
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err (or anything it wraps) is an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
