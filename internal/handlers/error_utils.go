package handlers

import (
	"errors"
	"fmt"
	"net/http"

	contextutils "practiceapp/internal/utils"

	"github.com/gin-gonic/gin"
)

// statusByErrorCode maps error codes onto HTTP statuses. Codes absent from
// the table answer as internal server errors.
var statusByErrorCode = map[contextutils.ErrorCode]int{
	contextutils.ErrorCodeInvalidInput:        http.StatusBadRequest,
	contextutils.ErrorCodeMissingRequired:     http.StatusBadRequest,
	contextutils.ErrorCodeInvalidFormat:       http.StatusBadRequest,
	contextutils.ErrorCodeLanguageNotResolved: http.StatusBadRequest,

	contextutils.ErrorCodeUnauthorized:       http.StatusUnauthorized,
	contextutils.ErrorCodeSessionExpired:     http.StatusUnauthorized,
	contextutils.ErrorCodeInvalidCredentials: http.StatusUnauthorized,

	contextutils.ErrorCodeForbidden:      http.StatusForbidden,
	contextutils.ErrorCodePracticeLocked: http.StatusForbidden,

	contextutils.ErrorCodeRecordNotFound:   http.StatusNotFound,
	contextutils.ErrorCodePracticeNotFound: http.StatusNotFound,
	contextutils.ErrorCodeQuestionNotFound: http.StatusNotFound,

	contextutils.ErrorCodeRecordExists:             http.StatusConflict,
	contextutils.ErrorCodePracticeAlreadySubmitted: http.StatusConflict,

	contextutils.ErrorCodeTimeout: http.StatusRequestTimeout,

	contextutils.ErrorCodeInternalError:       http.StatusInternalServerError,
	contextutils.ErrorCodeDatabaseQuery:       http.StatusInternalServerError,
	contextutils.ErrorCodeDatabaseTransaction: http.StatusInternalServerError,

	contextutils.ErrorCodeServiceUnavailable: http.StatusServiceUnavailable,
	contextutils.ErrorCodeDatabaseConnection: http.StatusServiceUnavailable,
	contextutils.ErrorCodeQuestionBankEmpty:  http.StatusServiceUnavailable,
}

func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	if status, ok := statusByErrorCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleAppError writes the structured JSON response for err. Errors that
// do not unwrap to an AppError are reported as opaque internal errors.
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		appErr = contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityError,
			"Internal server error",
			"",
			err,
		)
	}
	c.JSON(mapErrorCodeToHTTPStatus(appErr.Code), appErr.ToJSON())
}

// HandleValidationError reports a rejected request field
func HandleValidationError(c *gin.Context, field string, value interface{}, reason string) {
	HandleAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("Invalid %s", field),
		fmt.Sprintf("Value '%v' is invalid: %s", value, reason),
	))
}
