package binder_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/binder"
)

type initRequest struct {
	Storage   int `json:"storage"`
	Bandwidth int `json:"bandwidth"`
}

func newRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/init", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("valid JSON binding", func(t *testing.T) {
		t.Parallel()
		var result initRequest
		err := binder.JSON()(newRequest(`{"storage":64,"bandwidth":128}`, "application/json"), &result)
		require.NoError(t, err)
		assert.Equal(t, initRequest{Storage: 64, Bandwidth: 128}, result)
	})

	t.Run("content type with charset", func(t *testing.T) {
		t.Parallel()
		var result initRequest
		err := binder.JSON()(newRequest(`{"storage":4}`, "application/json; charset=utf-8"), &result)
		require.NoError(t, err)
		assert.Equal(t, 4, result.Storage)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{"missing content type", `{"storage":4}`, "", binder.ErrMissingContentType},
		{"wrong content type", `{"storage":4}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"empty body", ``, "application/json", binder.ErrFailedToParseJSON},
		{"malformed JSON", `{"storage":`, "application/json", binder.ErrFailedToParseJSON},
		{"wrong field type", `{"storage":"big"}`, "application/json", binder.ErrFailedToParseJSON},
		{"unknown field", `{"storage":4,"tier":"gold"}`, "application/json", binder.ErrFailedToParseJSON},
		{"trailing data", `{"storage":4}{"storage":8}`, "application/json", binder.ErrFailedToParseJSON},
		{"too large", `{"storage":4,"pad":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`, "application/json", binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var result initRequest
			err := binder.JSON()(newRequest(tt.body, tt.contentType), &result)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := newRequest(`{"storage":4}`, "application/json").WithContext(ctx)
		var result initRequest
		assert.ErrorIs(t, binder.JSON()(req, &result), binder.ErrFailedToParseJSON)
	})
}
