package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/jobs"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/providers/qwen"
	"studio/internal/providers/text"
	"studio/internal/providers/video"
)

// Build resolves credentials and wires every provider that has them.
// Providers without a key stay nil and answer 503.
func Build(ctx context.Context, cfg *infra.Config, pool *pgxpool.Pool, logger *infra.Logger) (*handlers.App, error) {
	logger = infra.LoggerOr(logger)
	var store *credentials.Store
	var sqlRunner *infra.SQLRunner
	if pool != nil {
		sqlRunner = infra.NewSQLRunner(pool, logger)
		store = credentials.NewStore(sqlRunner)
	}

	ledger, err := NewLedger(ctx, cfg, sqlRunner)
	if err != nil {
		return nil, err
	}

	decorator := prompt.NewDecorator()
	app := &handlers.App{Ledger: ledger, Decorator: decorator, Logger: logger}

	textKey, err := store.Resolve(ctx, credentials.ProviderText, cfg.Text.APIKey)
	if err != nil {
		return nil, err
	}
	if textKey != "" {
		app.Text = text.NewClient(text.Options{
			APIKey:       textKey,
			Model:        cfg.Text.Model,
			BaseURL:      cfg.Text.BaseURL,
			Organization: cfg.Text.Organization,
			HTTPClient:   &http.Client{Timeout: cfg.Text.Timeout},
			Logger:       logger,
		})
	}

	qwenKey, err := store.Resolve(ctx, credentials.ProviderQwen, cfg.Qwen.APIKey)
	if err != nil {
		return nil, err
	}
	if qwenKey != "" {
		app.Direct = qwen.NewClient(qwen.Options{
			APIKey:         qwenKey,
			BaseURL:        cfg.Qwen.BaseURL,
			Model:          cfg.Qwen.Model,
			DefaultSize:    cfg.Qwen.DefaultSize,
			Watermark:      cfg.Qwen.Watermark,
			Logger:         logger,
			RequestTimeout: cfg.Qwen.Timeout,
		})
	}

	jobsToken, err := store.Resolve(ctx, credentials.ProviderJobs, cfg.Jobs.APIToken)
	if err != nil {
		return nil, err
	}
	if jobsToken == "" {
		logger.Warn().Msg("jobs provider token missing; image and video jobs disabled")
		return app, nil
	}

	runner, err := jobs.NewPredictionRunner(jobs.PredictionOptions{
		Provider: credentials.ProviderJobs,
		BaseURL:  cfg.Jobs.BaseURL,
		APIToken: jobsToken,
		Ledger:   ledger,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	endpoint := jobs.PredictionsEndpoint(cfg.Jobs.BaseURL)

	if cfg.Image.ModelVersion != "" {
		images, err := image.New(image.Options{
			Endpoint:     endpoint,
			ModelVersion: cfg.Image.ModelVersion,
			Runner:       runner,
			Decorator:    decorator,
			Policy:       jobs.PollPolicy{Interval: cfg.Jobs.PollInterval, MaxAttempts: cfg.Jobs.MaxAttempts},
			Throttle:     jobs.NewThrottle(cfg.Jobs.ThrottleMode, cfg.Jobs.InterJobDelay, cfg.Jobs.ThrottleBurst),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		app.ImageJobs = images
	}

	if cfg.Video.ModelVersion != "" {
		videos, err := video.New(video.Options{
			Endpoint:     endpoint,
			ModelVersion: cfg.Video.ModelVersion,
			Runner:       runner,
			Decorator:    decorator,
			Policy:       jobs.PollPolicy{Interval: cfg.Video.PollInterval, MaxAttempts: cfg.Video.MaxAttempts},
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		app.VideoJobs = videos
	}
	return app, nil
}

// NewLedger returns the configured job ledger, or nil for the "none" driver.
func NewLedger(ctx context.Context, cfg *infra.Config, sqlRunner *infra.SQLRunner) (domain.JobLedger, error) {
	switch cfg.Ledger.Driver {
	case infra.LedgerMemory:
		return repo.NewLedgerMemory(cfg.Ledger.TTL), nil
	case infra.LedgerPostgres:
		if sqlRunner == nil {
			return nil, errors.New("postgres ledger requires a database")
		}
		ledger := repo.NewLedgerPG(sqlRunner)
		if err := ledger.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return ledger, nil
	default:
		return nil, nil
	}
}
