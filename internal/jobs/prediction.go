package jobs

import (
	"net/http"
	"strings"

	"studio/internal/domain"
	"studio/internal/infra"
)

// PredictionOptions describes a prediction-style provider: jobs are created
// with POST <BaseURL>/predictions and read back from GET
// <BaseURL>/predictions/<handle>.
type PredictionOptions struct {
	Provider   string
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Sleeper    Sleeper
	Ledger     domain.JobLedger
	Logger     *infra.Logger
}

// PredictionsEndpoint returns the job-creation URL for baseURL.
func PredictionsEndpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/predictions"
}

// NewPredictionRunner wires a Submitter, HTTP status fetcher and Poller into
// a Runner for one provider.
func NewPredictionRunner(opts PredictionOptions) (*Runner, error) {
	logger := infra.LoggerOr(opts.Logger)
	submitter := NewSubmitter(SubmitterOptions{
		APIKey:     opts.APIToken,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
	})
	fetcher := NewHTTPStatusFetcher(StatusOptions{
		Provider:   opts.Provider,
		BaseURL:    PredictionsEndpoint(opts.BaseURL),
		APIKey:     opts.APIToken,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
	})
	poller, err := NewPoller(PollerOptions{Fetcher: fetcher, Sleeper: opts.Sleeper, Logger: logger})
	if err != nil {
		return nil, err
	}
	return NewRunner(RunnerOptions{
		Provider:  opts.Provider,
		Submitter: submitter,
		Poller:    poller,
		Ledger:    opts.Ledger,
		Logger:    logger,
	})
}
