package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-marketplace/internal/common/logger"
)

func newTestClient(t *testing.T, baseURL string, retries int) *GenAIClient {
	return NewGenAIClient(&Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Timeout:     time.Second,
		MaxRetries:  retries,
		MaxTokens:   800,
		Temperature: 0.2,
	}, logger.NewTestLogger(t))
}

func TestGenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "assess risk", req.Prompt)
		assert.Equal(t, 800, req.MaxTokens)

		json.NewEncoder(w).Encode(generateResponse{Text: `{"risk_rating":"low"}`, Confidence: 0.9})
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, 0).Generate(context.Background(), Request{Stage: "risk", Prompt: "assess risk"})
	require.NoError(t, err)
	assert.Equal(t, `{"risk_rating":"low"}`, text)
}

func TestGenAIClient_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Text: "ok"})
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, 2).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenAIClient_Failures(t *testing.T) {
	t.Run("exhausted retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, 1).Generate(context.Background(), Request{Prompt: "p"})
		assert.True(t, errors.Is(err, ErrNarrativeFailed))
	})

	t.Run("empty text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(generateResponse{Text: "   "})
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, 0).Generate(context.Background(), Request{Prompt: "p"})
		assert.True(t, errors.Is(err, ErrNarrativeFailed))
	})

	t.Run("context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newTestClient(t, server.URL, 3).Generate(ctx, Request{Prompt: "p"})
		assert.True(t, errors.Is(err, ErrNarrativeTimeout))
	})
}
