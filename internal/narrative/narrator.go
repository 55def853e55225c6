// Package narrative talks to the text-generation service and turns its free
// text into structured fields.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "credit-marketplace/internal/common/http"
	"credit-marketplace/internal/common/logger"
)

//go:generate mockgen -destination=mocks/mock_narrator.go -package=mock_narrative -source=narrator.go Narrator

var (
	ErrNarrativeTimeout = errors.New("NARRATIVE_TIMEOUT")
	ErrNarrativeFailed  = errors.New("NARRATIVE_FAILED")
)

// Request is one generation call. Stage labels the caller for logs and metrics.
type Request struct {
	Stage   string
	Prompt  string
	Context map[string]interface{}
}

// Narrator produces free text for a prompt.
type Narrator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// GenAIClient calls POST {BaseURL}/api/ai/generate.
type GenAIClient struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewGenAIClient(config *Config, log logger.Logger) *GenAIClient {
	client := commonhttp.NewClient(config.Timeout)
	if config.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+config.APIKey)
	}
	return &GenAIClient{
		config: config,
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context,omitempty"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
}

type generateResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Generate retries failed calls with exponential backoff. An empty reply is
// an error so callers fall back instead of parsing nothing.
func (c *GenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	body := generateRequest{
		Prompt:      req.Prompt,
		Context:     req.Context,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/ai/generate"

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrNarrativeTimeout
			}
		}

		var resp generateResponse
		lastErr = c.client.PostJSON(ctx, url, body, &resp)
		if lastErr == nil {
			if strings.TrimSpace(resp.Text) == "" {
				return "", fmt.Errorf("%w: empty response", ErrNarrativeFailed)
			}
			c.logger.Debug("narrative generated", map[string]interface{}{
				"stage":      req.Stage,
				"attempt":    attempt + 1,
				"confidence": resp.Confidence,
			})
			return resp.Text, nil
		}

		if ctx.Err() != nil {
			return "", ErrNarrativeTimeout
		}
	}

	return "", fmt.Errorf("%w: %v", ErrNarrativeFailed, lastErr)
}
