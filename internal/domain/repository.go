package domain

import (
	"context"
	"time"
)

// LedgerStatus is the coarse state a job ledger keeps per handle.
type LedgerStatus string

const (
	LedgerStatusPending LedgerStatus = "pending"
	LedgerStatusDone    LedgerStatus = "done"
	LedgerStatusFailed  LedgerStatus = "failed"
)

// LedgerEntry is one row of the job ledger keyed by provider handle.
type LedgerEntry struct {
	ID           string
	Handle       JobHandle
	Provider     string
	Endpoint     string
	Status       LedgerStatus
	ResultJSON   []byte
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobLedger persists the lifecycle of submitted jobs. The orchestrator only
// writes to it; readers are diagnostics endpoints.
type JobLedger interface {
	Record(ctx context.Context, entry LedgerEntry) error
	Get(ctx context.Context, handle JobHandle) (*LedgerEntry, error)
}
