package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Snapshot is one decoded answer from a provider's job-status endpoint.
type Snapshot struct {
	Status domain.JobStatus
	Output json.RawMessage
	Error  string
}

// StatusFetcher queries the current state of a job.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, handle domain.JobHandle) (Snapshot, error)
}

// StatusFetcherFunc adapts a function to StatusFetcher.
type StatusFetcherFunc func(ctx context.Context, handle domain.JobHandle) (Snapshot, error)

func (f StatusFetcherFunc) FetchStatus(ctx context.Context, handle domain.JobHandle) (Snapshot, error) {
	return f(ctx, handle)
}

// StatusOptions configures HTTPStatusFetcher.
type StatusOptions struct {
	Provider   string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// HTTPStatusFetcher reads job status from GET <BaseURL>/<handle>.
type HTTPStatusFetcher struct {
	provider   string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *infra.Logger
}

type statusResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

// NewHTTPStatusFetcher constructs a status fetcher for one provider.
func NewHTTPStatusFetcher(opts StatusOptions) *HTTPStatusFetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		provider = "jobs"
	}
	return &HTTPStatusFetcher{
		provider:   provider,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: client,
		logger:     infra.LoggerOr(opts.Logger),
	}
}

// FetchStatus performs one status query. Transport and HTTP failures are
// reported as *domain.ProviderError; they end the poll loop.
func (f *HTTPStatusFetcher) FetchStatus(ctx context.Context, handle domain.JobHandle) (Snapshot, error) {
	endpoint := f.baseURL + "/" + url.PathEscape(handle.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("jobs: build status request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, &domain.ProviderError{Provider: f.provider, Message: "status request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, &domain.ProviderError{Provider: f.provider, StatusCode: resp.StatusCode, Message: "read status response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Snapshot{}, &domain.ProviderError{Provider: f.provider, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Snapshot{}, &domain.ProviderError{Provider: f.provider, StatusCode: resp.StatusCode, Message: "decode status response", Err: err}
	}
	snap := Snapshot{
		Status: domain.ParseJobStatus(decoded.Status),
		Output: decoded.Output,
		Error:  rawErrorString(decoded.Error),
	}
	f.logger.Debug().
		Str("provider", f.provider).
		Str("handle", handle.String()).
		Str("status", string(snap.Status)).
		Msg("jobs: status polled")
	return snap, nil
}
