package repo

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"studio/internal/domain"
)

// LedgerMemory keeps ledger entries in process memory and forgets them after
// ttl. It does not survive restarts.
type LedgerMemory struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

// NewLedgerMemory creates a ledger whose entries expire ttl after their last
// update. A non-positive ttl keeps entries forever.
func NewLedgerMemory(ttl time.Duration) *LedgerMemory {
	expiry, cleanup := ttl, ttl
	if ttl <= 0 {
		expiry, cleanup = cache.NoExpiration, 0
	}
	return &LedgerMemory{cache: cache.New(expiry, cleanup), now: time.Now}
}

func (l *LedgerMemory) Record(ctx context.Context, entry domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := entry.Handle.String()
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.cache.Get(key); ok {
		old := prev.(domain.LedgerEntry)
		entry.ID = old.ID
		entry.CreatedAt = old.CreatedAt
		if len(entry.ResultJSON) == 0 {
			entry.ResultJSON = old.ResultJSON
		}
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	l.cache.Set(key, entry, cache.DefaultExpiration)
	return nil
}

func (l *LedgerMemory) Get(ctx context.Context, handle domain.JobHandle) (*domain.LedgerEntry, error) {
	v, ok := l.cache.Get(handle.String())
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry := v.(domain.LedgerEntry)
	return &entry, nil
}

var _ domain.JobLedger = (*LedgerMemory)(nil)
