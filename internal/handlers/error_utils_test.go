package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contextutils "practiceapp/internal/utils"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code contextutils.ErrorCode
		want int
	}{
		{contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{contextutils.ErrorCodeLanguageNotResolved, http.StatusBadRequest},
		{contextutils.ErrorCodeInvalidCredentials, http.StatusUnauthorized},
		{contextutils.ErrorCodeSessionExpired, http.StatusUnauthorized},
		{contextutils.ErrorCodePracticeLocked, http.StatusForbidden},
		{contextutils.ErrorCodePracticeNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeQuestionNotFound, http.StatusNotFound},
		{contextutils.ErrorCodePracticeAlreadySubmitted, http.StatusConflict},
		{contextutils.ErrorCodeRecordExists, http.StatusConflict},
		{contextutils.ErrorCodeQuestionBankEmpty, http.StatusServiceUnavailable},
		{contextutils.ErrorCodeTimeout, http.StatusRequestTimeout},
		{contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
		{contextutils.ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestHandleAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("app error maps code and carries retryable flag", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleAppError(c, contextutils.ErrPracticeAlreadySubmitted)

		assert.Equal(t, http.StatusConflict, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, string(contextutils.ErrorCodePracticeAlreadySubmitted), body["code"])
		assert.Equal(t, false, body["retryable"])
	})

	t.Run("plain error becomes internal server error", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleAppError(c, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationError(c, "practice id", "abc", "must be a positive integer")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), body["code"])
}
