package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"studio/internal/domain"
)

// scriptedFetcher replays snapshots in order and repeats the last one.
type scriptedFetcher struct {
	mu        sync.Mutex
	snapshots []Snapshot
	err       error
	calls     int
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, handle domain.JobHandle) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Snapshot{}, f.err
	}
	if len(f.snapshots) == 0 {
		return Snapshot{Status: domain.JobStatusProcessing}, nil
	}
	idx := f.calls - 1
	if idx >= len(f.snapshots) {
		idx = len(f.snapshots) - 1
	}
	return f.snapshots[idx], nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSleeper returns immediately and remembers every requested wait.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// fakeRunner resolves jobs by looking at the payload; payloads listed in
// fail return a JobFailedError.
type fakeRunner struct {
	mu       sync.Mutex
	fail     map[string]error
	payloads []any
}

func (r *fakeRunner) Run(ctx context.Context, endpoint string, payload any, policy PollPolicy) (domain.JobResult, error) {
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	key, _ := payload.(string)
	if err, ok := r.fail[key]; ok {
		return domain.JobResult{}, err
	}
	return domain.JobResult{
		Handle: domain.JobHandle("h-" + key),
		Status: domain.JobStatusSucceeded,
		URLs:   []string{"https://x/" + key + ".png"},
	}, nil
}

// memoryLedger is a minimal in-test JobLedger.
type memoryLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (l *memoryLedger) Record(ctx context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *memoryLedger) Get(ctx context.Context, handle domain.JobHandle) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Handle == handle {
			entry := l.entries[i]
			return &entry, nil
		}
	}
	return nil, domain.ErrNotFound
}

func jsonRaw(v any) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
