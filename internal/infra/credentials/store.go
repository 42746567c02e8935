package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// Provider names stored in integration_tokens.provider.
const (
	ProviderText = "text"
	ProviderQwen = "qwen"
	ProviderJobs = "jobs"
)

// Providers lists every provider that accepts a stored token.
var Providers = []string{ProviderText, ProviderQwen, ProviderJobs}

// Store reads and writes provider API tokens kept in Postgres. It is the
// fallback when a key is not present in the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// EnsureSchema creates the integration_tokens table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.sql.Exec(ctx, sqlinline.QEnsureIntegrationTokens)
	return err
}

// Token returns the stored token for provider, or "" when none is stored or
// the table has not been created yet.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		var pgErr *pgconn.PgError
		if infra.IsNoRows(err) || (errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the configured value and only consults the table when it
// is empty. A nil Store resolves to the configured value.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil {
		return "", nil
	}
	return s.Token(ctx, provider)
}

// SetToken upserts the token for a known provider.
func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	if !IsKnownProvider(provider) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " api token is required")
	}
	return s.upsert(ctx, provider, token, props)
}

// IsKnownProvider reports whether name is one of Providers.
func IsKnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
