package video

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/jobs"
	"studio/internal/providers/prompt"
)

// MaxDurationSeconds bounds a single clip.
const MaxDurationSeconds = 10

// Request describes one clip.
type Request struct {
	Prompt          string
	AspectRatio     string
	DurationSeconds int
	Seed            int
	StartImageURL   string
}

// Options configures the long-running video adapter.
type Options struct {
	Endpoint     string
	ModelVersion string
	Runner       jobs.JobRunner
	Decorator    prompt.Decorator
	Policy       jobs.PollPolicy
	Logger       *infra.Logger
}

// Adapter runs one prediction job per clip with a long poll budget.
type Adapter struct {
	endpoint  string
	version   string
	runner    jobs.JobRunner
	decorator prompt.Decorator
	policy    jobs.PollPolicy
	logger    *infra.Logger
}

type payload struct {
	Version string `json:"version"`
	Input   input  `json:"input"`
}

type input struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio"`
	Duration       int    `json:"duration"`
	Seed           int    `json:"seed,omitempty"`
	StartImage     string `json:"start_image,omitempty"`
}

func New(opts Options) (*Adapter, error) {
	if opts.Runner == nil {
		return nil, errors.New("video: runner is required")
	}
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("video: endpoint is required")
	}
	return &Adapter{
		endpoint:  opts.Endpoint,
		version:   strings.TrimSpace(opts.ModelVersion),
		runner:    opts.Runner,
		decorator: opts.Decorator,
		policy:    opts.Policy,
		logger:    infra.LoggerOr(opts.Logger),
	}, nil
}

// Generate validates req, decorates the prompt and blocks until the clip is
// ready, failed, or the poll budget runs out.
func (a *Adapter) Generate(ctx context.Context, req Request) (domain.JobResult, error) {
	p, err := a.build(req)
	if err != nil {
		return domain.JobResult{}, err
	}
	a.logger.Debug().Int("duration", p.Input.Duration).Str("aspect_ratio", p.Input.AspectRatio).Msg("video: submitting clip")
	return a.runner.Run(ctx, a.endpoint, p, a.policy)
}

func (a *Adapter) build(req Request) (payload, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return payload{}, fmt.Errorf("video: %w", domain.ErrInvalidPrompt)
	}
	duration := req.DurationSeconds
	switch {
	case duration <= 0:
		duration = 5
	case duration > MaxDurationSeconds:
		return payload{}, fmt.Errorf("video: %w: duration must be at most %ds", domain.ErrInvalidPrompt, MaxDurationSeconds)
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = "16:9"
	}
	start := strings.TrimSpace(req.StartImageURL)
	if start != "" {
		u, err := url.Parse(start)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return payload{}, fmt.Errorf("video: %w: start image must be an http(s) url", domain.ErrInvalidPrompt)
		}
	}
	decorated := a.decorator.Apply(domain.GenerationRequest{Prompt: req.Prompt})
	return payload{
		Version: a.version,
		Input: input{
			Prompt:         decorated.Prompt,
			NegativePrompt: decorated.NegativePrompt,
			AspectRatio:    aspect,
			Duration:       duration,
			Seed:           req.Seed,
			StartImage:     start,
		},
	}, nil
}
