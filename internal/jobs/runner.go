package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
)

// marshalResult encodes the ledger copy of a successful result.
var marshalResult = json.Marshal

// JobSubmitter creates a job and returns its handle.
type JobSubmitter interface {
	Submit(ctx context.Context, endpoint string, payload any) (domain.JobHandle, error)
}

// JobPoller waits for a job to reach a terminal state.
type JobPoller interface {
	PollUntilTerminal(ctx context.Context, handle domain.JobHandle, policy PollPolicy) (domain.JobResult, error)
}

// JobRunner is the single-job unit of work repeated by RunBatch.
type JobRunner interface {
	Run(ctx context.Context, endpoint string, payload any, policy PollPolicy) (domain.JobResult, error)
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Provider  string
	Submitter JobSubmitter
	Poller    JobPoller
	Ledger    domain.JobLedger
	Logger    *infra.Logger
}

// Runner composes submission and polling into one call. It holds no per-job
// state, so one Runner may serve any number of sequential or concurrent calls.
type Runner struct {
	provider  string
	submitter JobSubmitter
	poller    JobPoller
	ledger    domain.JobLedger
	logger    *infra.Logger
}

// NewRunner validates opts and returns a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Submitter == nil {
		return nil, errors.New("jobs: submitter is required")
	}
	if opts.Poller == nil {
		return nil, errors.New("jobs: poller is required")
	}
	return &Runner{
		provider:  opts.Provider,
		submitter: opts.Submitter,
		poller:    opts.Poller,
		ledger:    opts.Ledger,
		logger:    infra.LoggerOr(opts.Logger),
	}, nil
}

// Run submits payload and polls until the job is terminal. Submission,
// failure and timeout errors are returned unchanged; polling never starts
// when submission fails.
func (r *Runner) Run(ctx context.Context, endpoint string, payload any, policy PollPolicy) (domain.JobResult, error) {
	handle, err := r.submitter.Submit(ctx, endpoint, payload)
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", r.provider).Str("endpoint", endpoint).Msg("jobs: submission failed")
		return domain.JobResult{}, err
	}
	r.record(ctx, domain.LedgerEntry{
		Handle:   handle,
		Provider: r.provider,
		Endpoint: endpoint,
		Status:   domain.LedgerStatusPending,
	})

	start := time.Now()
	result, err := r.poller.PollUntilTerminal(ctx, handle, policy)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("provider", r.provider).
			Str("handle", handle.String()).
			Dur("elapsed", time.Since(start)).
			Msg("jobs: job did not succeed")
		r.record(ctx, domain.LedgerEntry{
			Handle:       handle,
			Provider:     r.provider,
			Endpoint:     endpoint,
			Status:       domain.LedgerStatusFailed,
			ErrorMessage: err.Error(),
		})
		return domain.JobResult{}, err
	}

	r.logger.Info().
		Str("provider", r.provider).
		Str("handle", handle.String()).
		Int("outputs", len(result.URLs)).
		Dur("elapsed", time.Since(start)).
		Msg("jobs: job succeeded")
	resultJSON, err := marshalResult(result)
	if err != nil {
		r.logger.Error().Err(err).Str("handle", handle.String()).Msg("jobs: encode ledger result")
		resultJSON = nil
	}
	r.record(ctx, domain.LedgerEntry{
		Handle:     handle,
		Provider:   r.provider,
		Endpoint:   endpoint,
		Status:     domain.LedgerStatusDone,
		ResultJSON: resultJSON,
	})
	return result, nil
}

// record writes to the ledger on a context detached from cancellation so the
// final state of an aborted job is still kept. Ledger failures never fail
// the job.
func (r *Runner) record(ctx context.Context, entry domain.LedgerEntry) {
	if r.ledger == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.ledger.Record(writeCtx, entry); err != nil {
		r.logger.Error().Err(err).Str("handle", entry.Handle.String()).Msg("jobs: ledger write failed")
	}
}
