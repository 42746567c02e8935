package jobs

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
)

// JobSpec is the fully built request for one batch member.
type JobSpec struct {
	Endpoint string
	Payload  any
}

// BuildFunc turns a batch input into its JobSpec. An error is a precondition
// violation and aborts the whole batch before any job is submitted.
type BuildFunc[T any] func(item T) (JobSpec, error)

// BatchConfig carries the per-batch policies.
type BatchConfig struct {
	Policy   PollPolicy
	Throttle Throttle
	Logger   *infra.Logger
}

// RunBatch runs one job per item, strictly one at a time and in input order,
// waiting on the throttle between consecutive items. Every job error lands in
// the failures list; job errors never stop the batch. When ctx is canceled, or
// the throttle cannot grant the next start, the remaining items are recorded
// as failures carrying that error, and it is also returned alongside the
// outcome.
func RunBatch[T any](ctx context.Context, runner JobRunner, items []T, build BuildFunc[T], cfg BatchConfig) (domain.BatchOutcome[T], error) {
	var outcome domain.BatchOutcome[T]
	if runner == nil {
		return outcome, fmt.Errorf("jobs: runner is required")
	}
	if build == nil {
		return outcome, fmt.Errorf("jobs: build func is required")
	}

	specs := make([]JobSpec, len(items))
	for i, item := range items {
		spec, err := build(item)
		if err != nil {
			return outcome, fmt.Errorf("jobs: build batch item %d: %w", i, err)
		}
		specs[i] = spec
	}

	throttle := cfg.Throttle
	if throttle == nil {
		throttle = NoDelay{}
	}
	logger := infra.LoggerOr(cfg.Logger)

	var stopErr error
	if admitter, ok := throttle.(Admitter); ok && len(items) > 0 {
		if err := admitter.Admit(ctx); err != nil {
			stopErr = err
			logger.Warn().Err(err).Int("total", len(items)).Msg("jobs: batch throttle refused first item")
		}
	}

	for i, item := range items {
		entry := domain.BatchItem[T]{Index: i, Input: item}
		if stopErr == nil {
			stopErr = ctx.Err()
		}
		if stopErr != nil {
			entry.Err = stopErr
			outcome.Failures = append(outcome.Failures, entry)
			continue
		}

		result, err := runner.Run(ctx, specs[i].Endpoint, specs[i].Payload, cfg.Policy)
		if err != nil {
			entry.Err = err
			outcome.Failures = append(outcome.Failures, entry)
			logger.Warn().Err(err).Int("index", i).Int("total", len(items)).Msg("jobs: batch item failed")
		} else {
			entry.Result = &result
			outcome.Successes = append(outcome.Successes, entry)
		}

		if i < len(items)-1 {
			if err := throttle.Wait(ctx); err != nil {
				stopErr = err
				logger.Warn().Err(err).Int("index", i).Msg("jobs: batch throttle interrupted")
			}
		}
	}

	logger.Info().
		Int("total", len(items)).
		Int("succeeded", len(outcome.Successes)).
		Int("failed", len(outcome.Failures)).
		Msg("jobs: batch finished")
	if stopErr != nil {
		return outcome, stopErr
	}
	return outcome, ctx.Err()
}
