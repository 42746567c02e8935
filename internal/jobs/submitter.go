package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// SubmitterOptions configures the HTTP job submitter.
type SubmitterOptions struct {
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Submitter issues the single "create job" call against a provider.
type Submitter struct {
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

type createResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// NewSubmitter constructs a submitter with a default HTTP client when none is
// injected.
func NewSubmitter(opts SubmitterOptions) *Submitter {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Submitter{
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
		logger:     infra.LoggerOr(opts.Logger),
	}
}

// Submit posts payload to endpoint and returns the provider handle. It never
// retries; any failure is reported as a *domain.SubmissionError.
func (s *Submitter) Submit(ctx context.Context, endpoint string, payload any) (domain.JobHandle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jobs: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("jobs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &domain.SubmissionError{Message: "http request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var decoded createResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	handle := strings.TrimSpace(decoded.ID)
	if handle == "" {
		return "", &domain.SubmissionError{StatusCode: resp.StatusCode, Message: "response missing job id"}
	}
	s.logger.Debug().
		Str("endpoint", endpoint).
		Str("handle", handle).
		Str("status", decoded.Status).
		Msg("jobs: submitted")
	return domain.JobHandle(handle), nil
}

type providerErrorBody struct {
	Detail  string          `json:"detail"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// errorMessage extracts the most specific message a provider put in an error
// body, falling back to the trimmed body.
func errorMessage(raw []byte) string {
	var body providerErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Detail); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return msg
		}
		if msg := rawErrorString(body.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(body.Title); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty response body"
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// rawErrorString accepts either a JSON string or an object with a message
// field.
func rawErrorString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return strings.TrimSpace(string(raw))
}
