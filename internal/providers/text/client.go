package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/prompt"
)

const providerName = "text"

const defaultModel = "gpt-4o-mini"

// Options configures the OpenAI-compatible text client.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client generates short brand copy with a single chat completion call.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	logger       *infra.Logger
}

// AffirmationRequest is the caller input for GenerateAffirmation.
type AffirmationRequest struct {
	Theme  string
	Locale string
}

// Affirmation is the generated text plus what produced it.
type Affirmation struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
	Model  string `json:"model"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		logger:       infra.LoggerOr(opts.Logger),
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateAffirmation makes one chat completion request. Any failure,
// including an empty answer, is a *domain.ProviderError.
func (c *Client) GenerateAffirmation(ctx context.Context, req AffirmationRequest) (*Affirmation, error) {
	if !c.HasCredentials() {
		return nil, fmt.Errorf("text: %w", domain.ErrNotConfigured)
	}
	payload := chatRequest{
		Model:       c.model,
		Temperature: 0.8,
		MaxTokens:   120,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.AffirmationSystemPrompt},
			{Role: "user", Content: prompt.Affirmation(req.Theme, req.Locale)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("text: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("text: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, Message: "http request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	if len(out.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "no choices", Err: errors.New("empty choices")}
	}
	text := cleanAffirmation(out.Choices[0].Message.Content)
	if text == "" {
		return nil, &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "empty response"}
	}
	c.logger.Debug().Str("model", c.model).Str("locale", req.Locale).Msg("text: affirmation generated")
	return &Affirmation{Text: text, Locale: req.Locale, Model: c.model}, nil
}

func errorMessage(raw []byte, status int) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return fmt.Sprintf("status %d", status)
}

// cleanAffirmation strips wrapping quotes the model sometimes adds.
func cleanAffirmation(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"“”'")
	return strings.TrimSpace(s)
}
