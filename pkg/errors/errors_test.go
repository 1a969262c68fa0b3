package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppError_TypeHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{"validation", NewValidationError("bad seed"), IsValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("exploration"), IsNotFound, http.StatusNotFound},
		{"external", NewExternalError("search", stderrors.New("boom")), IsExternal, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, IsAppError(tt.err))
			assert.Equal(t, tt.status, GetAppError(tt.err).HTTPStatus)
		})
	}
}

func TestAppError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewDatabaseError("PutItem", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	wrapped := fmt.Errorf("saving result: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeDatabase))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	appErr := Wrap(NewNotFoundError("history"), "loading")
	assert.True(t, IsNotFound(appErr))
	assert.Contains(t, appErr.Error(), "loading: history not found")

	plain := Wrapf(stderrors.New("eof"), "reading %s", "body")
	assert.True(t, IsType(plain, ErrorTypeInternal))
}

func TestErrorHandler_Handle(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)

	t.Run("app error keeps status and type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/explorations", nil)

		handler.Handle(rec, req, NewValidationError("seedKeyword is required"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Error)
		assert.Equal(t, string(ErrorTypeValidation), body.Type)
		assert.Equal(t, "seedKeyword is required", body.Message)
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		handler.Handle(rec, req, stderrors.New("secret detail"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})
}

func TestFromContext(t *testing.T) {
	timeout := FromContext(fmt.Errorf("query: %w", context.DeadlineExceeded), "GetItem")
	assert.True(t, IsType(timeout, ErrorTypeTimeout))
	assert.Equal(t, http.StatusGatewayTimeout, GetAppError(timeout).HTTPStatus)

	cancelled := FromContext(context.Canceled, "GetItem")
	assert.True(t, IsType(cancelled, ErrorTypeUnavailable))
	assert.Equal(t, "CANCELLED", GetAppError(cancelled).Code)

	plain := stderrors.New("eof")
	assert.Same(t, plain, FromContext(plain, "GetItem"))
}

func TestErrorHandler_HeadersAndMapping(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), true)

	t.Run("retry after header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/explorations", nil)

		handler.Handle(rec, req, NewRateLimitError("search").WithRetryAfter(1500*time.Millisecond))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/explorations", nil)

		handler.Handle(rec, req, fmt.Errorf("explore: %w", context.DeadlineExceeded))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, string(ErrorTypeTimeout), body.Type)
	})

	t.Run("debug adds stack without mutating error", func(t *testing.T) {
		appErr := NewNotFoundError("exploration").WithDetails(map[string]interface{}{"id": "x"})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		handler.Handle(rec, req, appErr)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body.Details, "stack_trace")
		assert.NotContains(t, appErr.Details, "stack_trace")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
		assert.Zero(t, rec.Body.Len())
	})
}
