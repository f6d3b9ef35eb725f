package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Drinks grew 20%."}]}}]}`))
	}))
	defer srv.Close()

	gw, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	answer, err := gw.Complete(context.Background(), Request{SystemPrompt: SystemPrompt, UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Drinks grew 20%.", answer)
}

func TestGeminiClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	gw, err := NewGemini(context.Background(), GeminiConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = gw.Complete(context.Background(), Request{UserPrompt: "q"})
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.Code)
	assert.False(t, IsRetryable(err))
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
