package jobs

import (
	"context"
	"errors"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// PollPolicy bounds a poll loop: at most MaxAttempts status queries with a
// fixed Interval between consecutive queries.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Fetcher StatusFetcher
	Sleeper Sleeper
	Logger  *infra.Logger
}

// Poller drives the job state machine against a StatusFetcher.
type Poller struct {
	fetcher StatusFetcher
	sleeper Sleeper
	logger  *infra.Logger
}

// NewPoller validates opts and returns a Poller. A nil Sleeper uses real timers.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("jobs: status fetcher is required")
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return &Poller{
		fetcher: opts.Fetcher,
		sleeper: sleeper,
		logger:  infra.LoggerOr(opts.Logger),
	}, nil
}

// PollUntilTerminal queries the job status until the provider reports a
// terminal state or the attempt budget is spent. The loop is strictly
// sequential: wait, query, decide. The wait is skipped before the first query.
func (p *Poller) PollUntilTerminal(ctx context.Context, handle domain.JobHandle, policy PollPolicy) (domain.JobResult, error) {
	state := InitialState()
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleeper.Sleep(ctx, policy.Interval); err != nil {
				return domain.JobResult{}, err
			}
		} else if err := ctx.Err(); err != nil {
			return domain.JobResult{}, err
		}

		snap, err := p.fetcher.FetchStatus(ctx, handle)
		if err != nil {
			return domain.JobResult{}, err
		}
		state = Transition(state, snap)

		switch state.Status {
		case domain.JobStatusSucceeded:
			urls, text := domain.DecodeOutput(state.Output)
			return domain.JobResult{
				Handle: handle,
				Status: domain.JobStatusSucceeded,
				URLs:   urls,
				Text:   text,
				Raw:    state.Output,
			}, nil
		case domain.JobStatusFailed:
			return domain.JobResult{}, &domain.JobFailedError{Handle: handle, Message: state.Message}
		}
	}

	state = Exhaust(state)
	attempts := policy.MaxAttempts
	if attempts < 0 {
		attempts = 0
	}
	p.logger.Warn().
		Str("handle", handle.String()).
		Int("attempts", attempts).
		Str("status", string(state.Status)).
		Msg("jobs: poll budget exhausted")
	return domain.JobResult{}, &domain.JobTimeoutError{Handle: handle, Attempts: attempts}
}
