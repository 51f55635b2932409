// Package contextutils provides the shared error taxonomy and request
// context helpers used across the practice application.
package contextutils

import (
	"context"
	"fmt"
	"strings"
)

// ErrorCode identifies an error class in API responses and logs
type ErrorCode string

// Database and storage codes
const (
	ErrorCodeDatabaseConnection  ErrorCode = "DATABASE_CONNECTION_ERROR"
	ErrorCodeDatabaseQuery       ErrorCode = "DATABASE_QUERY_ERROR"
	ErrorCodeDatabaseTransaction ErrorCode = "DATABASE_TRANSACTION_ERROR"
	ErrorCodeRecordNotFound      ErrorCode = "RECORD_NOT_FOUND"
	ErrorCodeRecordExists        ErrorCode = "RECORD_ALREADY_EXISTS"
)

// Input validation codes
const (
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrorCodeInvalidFormat   ErrorCode = "INVALID_FORMAT"
)

// Authentication and authorization codes
const (
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrorCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrorCodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
)

// Service-level codes
const (
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "REQUEST_TIMEOUT"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_SERVER_ERROR"
)

// Practice domain codes
const (
	// ErrorCodePracticeNotFound reports a practice session the user does not own
	// or that does not exist; the two cases are indistinguishable to the caller.
	ErrorCodePracticeNotFound ErrorCode = "PRACTICE_NOT_FOUND"
	// ErrorCodePracticeAlreadySubmitted reports a second submission of a
	// session that has already been scored.
	ErrorCodePracticeAlreadySubmitted ErrorCode = "PRACTICE_ALREADY_SUBMITTED"
	// ErrorCodePracticeLocked reports access to a future day's session.
	ErrorCodePracticeLocked ErrorCode = "PRACTICE_LOCKED"
	// ErrorCodeLanguageNotResolved reports a user without a usable learning
	// language setting.
	ErrorCodeLanguageNotResolved ErrorCode = "LANGUAGE_NOT_RESOLVED"
	// ErrorCodeQuestionBankEmpty reports a language with no questions to
	// allocate from.
	ErrorCodeQuestionBankEmpty ErrorCode = "QUESTION_BANK_EMPTY"
	// ErrorCodeQuestionNotFound reports a missing question row.
	ErrorCodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
)

// SeverityLevel drives log level selection and cause redaction in responses
type SeverityLevel string

const (
	SeverityDebug SeverityLevel = "debug"
	SeverityInfo  SeverityLevel = "info"
	SeverityWarn  SeverityLevel = "warn"
	SeverityError SeverityLevel = "error"
	SeverityFatal SeverityLevel = "fatal"
)

// AppError is the structured error carried across service boundaries.
// Handlers map Code onto an HTTP status; the logger maps Severity onto a
// log level.
type AppError struct {
	Code     ErrorCode
	Severity SeverityLevel
	Message  string
	Details  string
	Cause    error
}

func (e *AppError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
}

// Unwrap exposes the cause chain to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so wrapped errors compare equal to the
// package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

func sentinel(code ErrorCode, severity SeverityLevel, message string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message}
}

// Sentinel errors. Compare with errors.Is or IsError; wrap with WrapError /
// WrapErrorf to add call-site context without losing the code.
var (
	ErrDatabaseConnection  = sentinel(ErrorCodeDatabaseConnection, SeverityError, "Database connection failed")
	ErrDatabaseQuery       = sentinel(ErrorCodeDatabaseQuery, SeverityError, "Database query failed")
	ErrDatabaseTransaction = sentinel(ErrorCodeDatabaseTransaction, SeverityError, "Database transaction failed")
	ErrRecordNotFound      = sentinel(ErrorCodeRecordNotFound, SeverityInfo, "Record not found")
	ErrRecordExists        = sentinel(ErrorCodeRecordExists, SeverityInfo, "Record already exists")

	ErrInvalidInput    = sentinel(ErrorCodeInvalidInput, SeverityWarn, "Invalid input")
	ErrMissingRequired = sentinel(ErrorCodeMissingRequired, SeverityWarn, "Missing required field")
	ErrInvalidFormat   = sentinel(ErrorCodeInvalidFormat, SeverityWarn, "Invalid format")

	ErrUnauthorized       = sentinel(ErrorCodeUnauthorized, SeverityWarn, "Unauthorized")
	ErrForbidden          = sentinel(ErrorCodeForbidden, SeverityWarn, "Forbidden")
	ErrInvalidCredentials = sentinel(ErrorCodeInvalidCredentials, SeverityWarn, "Invalid credentials")
	ErrSessionExpired     = sentinel(ErrorCodeSessionExpired, SeverityInfo, "Session expired")

	ErrServiceUnavailable = sentinel(ErrorCodeServiceUnavailable, SeverityError, "Service unavailable")
	ErrTimeout            = sentinel(ErrorCodeTimeout, SeverityWarn, "Request timeout")
	ErrInternalError      = sentinel(ErrorCodeInternalError, SeverityError, "Internal server error")

	ErrPracticeNotFound         = sentinel(ErrorCodePracticeNotFound, SeverityInfo, "Practice session not found")
	ErrPracticeAlreadySubmitted = sentinel(ErrorCodePracticeAlreadySubmitted, SeverityInfo, "Practice session already submitted")
	ErrPracticeLocked           = sentinel(ErrorCodePracticeLocked, SeverityWarn, "Practice session unlocks on its date")
	ErrLanguageNotResolved      = sentinel(ErrorCodeLanguageNotResolved, SeverityWarn, "Learning language not resolved")
	ErrQuestionBankEmpty        = sentinel(ErrorCodeQuestionBankEmpty, SeverityInfo, "No questions available for this language")
	ErrQuestionNotFound         = sentinel(ErrorCodeQuestionNotFound, SeverityInfo, "Question not found")
)

// NewAppError builds an AppError without a cause
func NewAppError(code ErrorCode, severity SeverityLevel, message, details string) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details}
}

// NewAppErrorWithCause builds an AppError wrapping an underlying error
func NewAppErrorWithCause(code ErrorCode, severity SeverityLevel, message, details string, cause error) *AppError {
	return &AppError{Code: code, Severity: severity, Message: message, Details: details, Cause: cause}
}

// wrapWithContext rewraps err under a new message. An AppError keeps its
// code and severity; anything else is classified as an internal error.
func wrapWithContext(err error, message string, cause error) error {
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:     appErr.Code,
			Severity: appErr.Severity,
			Message:  message,
			Details:  appErr.Error(),
			Cause:    cause,
		}
	}
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  message,
		Details:  err.Error(),
		Cause:    cause,
	}
}

// WrapError adds call-site context to err, preserving the code and severity
// of an AppError. Returns nil for a nil err.
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return wrapWithContext(err, context, err)
}

// WrapErrorf is WrapError with a format string. A %w verb in the format
// additionally threads the formatted error into the cause chain.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if strings.Contains(format, "%w") {
		wrapped := fmt.Errorf(format, args...)
		return wrapWithContext(err, wrapped.Error(), wrapped)
	}
	return wrapWithContext(err, fmt.Sprintf(format, args...), err)
}

// ErrorWithContextf builds a new internal error from a format string
func ErrorWithContextf(format string, args ...interface{}) error {
	return &AppError{
		Code:     ErrorCodeInternalError,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsError reports whether err is an AppError carrying target's code
func IsError(err error, target *AppError) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == target.Code
}

// AsError assigns err to target when err is an AppError
func AsError(err error, target **AppError) bool {
	appErr, ok := err.(*AppError)
	if ok {
		*target = appErr
	}
	return ok
}

// GetErrorCode returns err's code, defaulting to internal error
func GetErrorCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrorCodeInternalError
}

// GetErrorSeverity returns err's severity, defaulting to error
func GetErrorSeverity(err error) SeverityLevel {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Severity
	}
	return SeverityError
}

// IsRetryable reports whether err names a transient condition worth retrying
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case ErrorCodeTimeout, ErrorCodeServiceUnavailable, ErrorCodeDatabaseConnection:
		return appErr.Severity != SeverityFatal
	default:
		return false
	}
}

// ToJSON renders the error for an API response body. Causes are only
// exposed for error and fatal severities so client-facing conditions do
// not leak internals.
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":      string(e.Code),
		"message":   e.Message,
		"severity":  string(e.Severity),
		"error":     e.Message,
		"retryable": IsRetryable(e),
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	if e.Cause != nil && (e.Severity == SeverityError || e.Severity == SeverityFatal) {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// ContextKey is the type for values this package stores in a context
type ContextKey string

// UserIDKey attributes backgrounded work to the requesting user
const UserIDKey ContextKey = "userID"

// GetUserIDFromContext returns the user ID stored in ctx, or 0
func GetUserIDFromContext(ctx context.Context) int {
	userID, _ := ctx.Value(UserIDKey).(int)
	return userID
}

// WithUserID stores the user ID in ctx for request attribution
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
