package repo

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// LedgerPG is a domain.JobLedger stored in the generation_jobs table.
type LedgerPG struct {
	sql infra.SQLExecutor
}

// NewLedgerPG wraps an SQLExecutor.
func NewLedgerPG(sql infra.SQLExecutor) *LedgerPG {
	return &LedgerPG{sql: sql}
}

// EnsureSchema creates the ledger table when missing.
func (l *LedgerPG) EnsureSchema(ctx context.Context) error {
	if _, err := l.sql.Exec(ctx, sqlinline.QEnsureGenerationJobs); err != nil {
		return fmt.Errorf("ensure generation_jobs: %w", err)
	}
	return nil
}

// Record upserts by handle; the first write wins the row ID.
func (l *LedgerPG) Record(ctx context.Context, entry domain.LedgerEntry) error {
	_, err := l.sql.Exec(ctx, sqlinline.QUpsertGenerationJob,
		entry.ID,
		entry.Handle.String(),
		entry.Provider,
		entry.Endpoint,
		string(entry.Status),
		nullableBytes(entry.ResultJSON),
		entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", entry.Handle, err)
	}
	return nil
}

// Get returns domain.ErrNotFound for unknown handles.
func (l *LedgerPG) Get(ctx context.Context, handle domain.JobHandle) (*domain.LedgerEntry, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QSelectGenerationJob, handle.String())
	var (
		entry  domain.LedgerEntry
		raw    string
		status string
		result []byte
	)
	if err := row.Scan(
		&entry.ID,
		&raw,
		&entry.Provider,
		&entry.Endpoint,
		&status,
		&result,
		&entry.ErrorMessage,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	entry.Handle = domain.JobHandle(raw)
	entry.Status = domain.LedgerStatus(status)
	entry.ResultJSON = result
	return &entry, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobLedger = (*LedgerPG)(nil)
