package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
		message  string
	}{
		{"validation", NewValidationError("bad batch", "temperature"), CategoryValidation, http.StatusBadRequest, "[VALIDATION_ERROR] bad batch"},
		{"rate limit", NewRateLimitError("1m"), CategoryRateLimit, http.StatusTooManyRequests, "[RATE_LIMIT_EXCEEDED] Rate limit exceeded"},
		{"state", NewStateError("live mode already running"), CategoryState, http.StatusConflict, "[STATE_CONFLICT] live mode already running"},
		{"timeout", NewTimeoutError("slow", nil), CategoryTimeout, http.StatusGatewayTimeout, "[TIMEOUT_ERROR] slow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestConfigurationErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("open scaler.json: no such file")
	err := NewConfigurationError("failed to load scaler artifact", cause)

	assert.Equal(t, CategoryConfiguration, err.Category)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "scaler.json")
}

func TestToAppError(t *testing.T) {
	assert.Nil(t, ToAppError(nil))

	original := NewValidationError("x")
	assert.Same(t, original, ToAppError(original))
	assert.Same(t, original, ToAppError(fmt.Errorf("wrapped: %w", original)))

	assert.Equal(t, CategoryTimeout, ToAppError(context.DeadlineExceeded).Category)
	assert.Equal(t, CategoryNetwork, ToAppError(fmt.Errorf("dial tcp: connection refused")).Category)
	assert.Equal(t, CategoryInternal, ToAppError(fmt.Errorf("boom")).Category)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewNetworkError("down", nil)))
	assert.False(t, IsRetryableError(NewValidationError("bad")))
	assert.False(t, IsRetryableError(NewStateError("stopped")))
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(NewStateError("live mode is not running"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"state"`)
}

func TestRecoveryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"internal"`)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))

	base := fmt.Errorf("base")
	wrapped := WrapError(base, "loading %s", "model")
	assert.EqualError(t, wrapped, "loading model: base")
	assert.ErrorIs(t, wrapped, base)
}

func TestAppErrorJSON(t *testing.T) {
	body, err := json.Marshal(NewValidationErrorWithMap(map[string]string{"pressure": "must be a finite number"}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "VALIDATION_ERROR", decoded["code"])
	assert.Equal(t, "Invalid batch parameters", decoded["message"])
	assert.Equal(t, "validation", decoded["category"])
	assert.Equal(t, float64(http.StatusBadRequest), decoded["http_status"])

	details, ok := decoded["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "pressure")

	body, err = json.Marshal(NewStateError("already running"))
	require.NoError(t, err)
	assert.NotContains(t, string(body), "details")
}
