package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/internal/domain"
)

func stringSpec(item string) (JobSpec, error) {
	return JobSpec{Endpoint: "https://provider.test/predictions", Payload: item}, nil
}

func indices[T any](items []domain.BatchItem[T]) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.Index)
	}
	return out
}

func TestRunBatchPartitionsInOrder(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"p2": &domain.JobFailedError{Handle: "h-p2", Message: "nsfw"},
	}}
	sleeper := &recordingSleeper{}
	items := []string{"p1", "p2", "p3", "p4"}

	outcome, err := RunBatch(context.Background(), runner, items, stringSpec, BatchConfig{
		Policy:   PollPolicy{Interval: time.Second, MaxAttempts: 3},
		Throttle: FixedDelay{Delay: 2 * time.Second, Sleeper: sleeper},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, indices(outcome.Successes))
	assert.Equal(t, []int{1}, indices(outcome.Failures))
	assert.Equal(t, len(items), outcome.Total())
	assert.Equal(t, "https://x/p3.png", outcome.Successes[1].Result.FirstURL())
	assert.Equal(t, "p2", outcome.Failures[0].Input)
	assert.ErrorIs(t, outcome.Failures[0].Err, domain.ErrJobFailed)

	assert.Equal(t, []any{"p1", "p2", "p3", "p4"}, runner.payloads)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, sleeper.Waits())
}

func TestRunBatchKeepsEveryErrorKind(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{
		"a": &domain.SubmissionError{StatusCode: 401, Message: "Invalid token."},
		"b": &domain.JobTimeoutError{Handle: "h-b", Attempts: 3},
		"c": &domain.JobFailedError{Handle: "h-c", Message: "boom"},
	}}

	outcome, err := RunBatch(context.Background(), runner, []string{"a", "b", "c"}, stringSpec, BatchConfig{})
	require.NoError(t, err)
	assert.Empty(t, outcome.Successes)
	require.Len(t, outcome.Failures, 3)
	assert.ErrorIs(t, outcome.Failures[0].Err, domain.ErrSubmission)
	assert.ErrorIs(t, outcome.Failures[1].Err, domain.ErrJobTimeout)
	assert.ErrorIs(t, outcome.Failures[2].Err, domain.ErrJobFailed)
}

func TestRunBatchSingleItemDoesNotThrottle(t *testing.T) {
	sleeper := &recordingSleeper{}
	outcome, err := RunBatch(context.Background(), &fakeRunner{}, []string{"only"}, stringSpec, BatchConfig{
		Throttle: FixedDelay{Delay: time.Minute, Sleeper: sleeper},
	})
	require.NoError(t, err)
	assert.Len(t, outcome.Successes, 1)
	assert.Empty(t, sleeper.Waits())
}

func TestRunBatchEmpty(t *testing.T) {
	runner := &fakeRunner{}
	outcome, err := RunBatch(context.Background(), runner, nil, stringSpec, BatchConfig{})
	require.NoError(t, err)
	assert.Zero(t, outcome.Total())
	assert.Empty(t, runner.payloads)
}

func TestRunBatchBuildErrorAbortsBeforeSubmitting(t *testing.T) {
	runner := &fakeRunner{}
	build := func(item string) (JobSpec, error) {
		if item == "bad" {
			return JobSpec{}, domain.ErrInvalidPrompt
		}
		return stringSpec(item)
	}

	_, err := RunBatch(context.Background(), runner, []string{"ok", "bad", "ok2"}, build, BatchConfig{})
	require.ErrorIs(t, err, domain.ErrInvalidPrompt)
	assert.Empty(t, runner.payloads)
}

func TestRunBatchCancellationFailsRemainingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{}
	throttle := throttleFunc(func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	outcome, err := RunBatch(ctx, runner, []string{"p1", "p2", "p3"}, stringSpec, BatchConfig{Throttle: throttle})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0}, indices(outcome.Successes))
	assert.Equal(t, []int{1, 2}, indices(outcome.Failures))
	for _, failure := range outcome.Failures {
		assert.True(t, errors.Is(failure.Err, context.Canceled))
	}
	assert.Equal(t, []any{"p1"}, runner.payloads)
}

func TestRunBatchRequiresRunner(t *testing.T) {
	_, err := RunBatch[string](context.Background(), nil, []string{"a"}, stringSpec, BatchConfig{})
	require.Error(t, err)
}

type throttleFunc func(ctx context.Context) error

func (f throttleFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

// startRunner records when each job starts.
type startRunner struct {
	fakeRunner
	starts []time.Time
}

func (r *startRunner) Run(ctx context.Context, endpoint string, payload any, policy PollPolicy) (domain.JobResult, error) {
	r.mu.Lock()
	r.starts = append(r.starts, time.Now())
	r.mu.Unlock()
	return r.fakeRunner.Run(ctx, endpoint, payload, policy)
}

func TestRunBatchTokenBucketSpacesEveryStart(t *testing.T) {
	const every = 60 * time.Millisecond
	runner := &startRunner{}

	outcome, err := RunBatch(context.Background(), runner, []string{"p1", "p2", "p3"}, stringSpec, BatchConfig{
		Throttle: NewThrottle(ThrottleToken, every, 1),
	})
	require.NoError(t, err)
	assert.Len(t, outcome.Successes, 3)
	require.Len(t, runner.starts, 3)
	for i := 1; i < len(runner.starts); i++ {
		gap := runner.starts[i].Sub(runner.starts[i-1])
		assert.GreaterOrEqual(t, gap, every-10*time.Millisecond, "gap before item %d", i)
	}
}

func TestRunBatchSharedTokenBucketMetersFirstItem(t *testing.T) {
	bucket := NewTokenBucket(time.Hour, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := RunBatch(ctx, &fakeRunner{}, []string{"a"}, stringSpec, BatchConfig{Throttle: bucket})
	require.NoError(t, err)
	assert.Len(t, first.Successes, 1)

	runner := &fakeRunner{}
	second, err := RunBatch(ctx, runner, []string{"b", "c"}, stringSpec, BatchConfig{Throttle: bucket})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, second.Successes)
	assert.Equal(t, []int{0, 1}, indices(second.Failures))
	assert.Empty(t, runner.payloads)
}

func TestRunBatchThrottleBeyondDeadlineFailsRemainingItems(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner := &fakeRunner{}

	outcome, err := RunBatch(ctx, runner, []string{"p1", "p2", "p3"}, stringSpec, BatchConfig{
		Throttle: NewThrottle(ThrottleToken, time.Hour, 1),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []int{0}, indices(outcome.Successes))
	assert.Equal(t, []int{1, 2}, indices(outcome.Failures))
	for _, failure := range outcome.Failures {
		assert.ErrorIs(t, failure.Err, context.DeadlineExceeded)
	}
	assert.Equal(t, []any{"p1"}, runner.payloads)
}
