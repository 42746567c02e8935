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

func newTestPoller(t *testing.T, fetcher StatusFetcher, sleeper Sleeper) *Poller {
	t.Helper()
	p, err := NewPoller(PollerOptions{Fetcher: fetcher, Sleeper: sleeper})
	require.NoError(t, err)
	return p
}

func TestNewPollerRequiresFetcher(t *testing.T) {
	_, err := NewPoller(PollerOptions{})
	require.Error(t, err)
}

func TestPollSucceedsAfterProcessing(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []Snapshot{
		{Status: domain.JobStatusProcessing},
		{Status: domain.JobStatusSucceeded, Output: jsonRaw("https://x/img.png")},
	}}
	sleeper := &recordingSleeper{}
	p := newTestPoller(t, fetcher, sleeper)

	result, err := p.PollUntilTerminal(context.Background(), "job-1", PollPolicy{Interval: 2 * time.Second, MaxAttempts: 10})
	require.NoError(t, err)
	assert.Equal(t, "https://x/img.png", result.FirstURL())
	assert.Equal(t, domain.JobHandle("job-1"), result.Handle)
	assert.Equal(t, domain.JobStatusSucceeded, result.Status)
	assert.Equal(t, 2, fetcher.Calls())
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Waits())
}

func TestPollTimesOutAfterExactBudget(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []Snapshot{{Status: domain.JobStatusProcessing}}}
	sleeper := &recordingSleeper{}
	p := newTestPoller(t, fetcher, sleeper)

	_, err := p.PollUntilTerminal(context.Background(), "job-2", PollPolicy{Interval: time.Second, MaxAttempts: 3})
	require.Error(t, err)
	var timeout *domain.JobTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Attempts)
	assert.ErrorIs(t, err, domain.ErrJobTimeout)
	assert.NotErrorIs(t, err, domain.ErrJobFailed)
	assert.Equal(t, 3, fetcher.Calls())
	assert.Len(t, sleeper.Waits(), 2)
}

func TestPollZeroAttemptsMakesNoCalls(t *testing.T) {
	fetcher := &scriptedFetcher{}
	sleeper := &recordingSleeper{}
	p := newTestPoller(t, fetcher, sleeper)

	_, err := p.PollUntilTerminal(context.Background(), "job-3", PollPolicy{Interval: time.Second, MaxAttempts: 0})
	require.ErrorIs(t, err, domain.ErrJobTimeout)
	assert.Zero(t, fetcher.Calls())
	assert.Empty(t, sleeper.Waits())
}

func TestPollNegativeAttemptsMakesNoCalls(t *testing.T) {
	fetcher := &scriptedFetcher{}
	p := newTestPoller(t, fetcher, &recordingSleeper{})

	_, err := p.PollUntilTerminal(context.Background(), "job-3b", PollPolicy{MaxAttempts: -2})
	var timeout *domain.JobTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Zero(t, timeout.Attempts)
	assert.Zero(t, fetcher.Calls())
}

func TestPollShortCircuitsOnFirstSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []Snapshot{
		{Status: domain.JobStatusSucceeded, Output: jsonRaw([]string{"https://x/a.png", "https://x/b.png"})},
	}}
	sleeper := &recordingSleeper{}
	p := newTestPoller(t, fetcher, sleeper)

	result, err := p.PollUntilTerminal(context.Background(), "job-4", PollPolicy{Interval: time.Minute, MaxAttempts: 50})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a.png", "https://x/b.png"}, result.URLs)
	assert.Equal(t, 1, fetcher.Calls())
	assert.Empty(t, sleeper.Waits())
}

func TestPollReportsProviderFailure(t *testing.T) {
	fetcher := &scriptedFetcher{snapshots: []Snapshot{
		{Status: domain.JobStatusStarting},
		{Status: domain.JobStatusFailed, Error: "CUDA out of memory"},
	}}
	p := newTestPoller(t, fetcher, &recordingSleeper{})

	_, err := p.PollUntilTerminal(context.Background(), "job-5", PollPolicy{MaxAttempts: 5})
	var failed *domain.JobFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "CUDA out of memory", failed.Message)
	assert.Equal(t, domain.JobHandle("job-5"), failed.Handle)
	assert.Equal(t, 2, fetcher.Calls())
}

func TestPollStopsOnFetchError(t *testing.T) {
	fetchErr := &domain.ProviderError{Provider: "test", StatusCode: 500, Message: "boom"}
	fetcher := &scriptedFetcher{err: fetchErr}
	p := newTestPoller(t, fetcher, &recordingSleeper{})

	_, err := p.PollUntilTerminal(context.Background(), "job-6", PollPolicy{MaxAttempts: 5})
	require.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestPollHonorsCancellationAtSuspendPoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &scriptedFetcher{snapshots: []Snapshot{{Status: domain.JobStatusProcessing}}}
	sleeper := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	p := newTestPoller(t, fetcher, sleeper)

	_, err := p.PollUntilTerminal(ctx, "job-7", PollPolicy{Interval: time.Second, MaxAttempts: 10})
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, fetcher.Calls())
}

func TestPollCanceledBeforeFirstQuery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &scriptedFetcher{}
	p := newTestPoller(t, fetcher, &recordingSleeper{})

	_, err := p.PollUntilTerminal(ctx, "job-8", PollPolicy{MaxAttempts: 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fetcher.Calls())
}
