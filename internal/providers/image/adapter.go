package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/jobs"
	"studio/internal/providers/prompt"
)

// Options configures the slow, job-based image adapter.
type Options struct {
	Endpoint     string
	ModelVersion string
	Runner       jobs.JobRunner
	Decorator    prompt.Decorator
	Policy       jobs.PollPolicy
	Throttle     jobs.Throttle
	Logger       *infra.Logger
}

// Adapter turns image requests into prediction jobs. Single images run one
// job; variation sets and mood boards run as a throttled batch.
type Adapter struct {
	endpoint  string
	version   string
	runner    jobs.JobRunner
	decorator prompt.Decorator
	policy    jobs.PollPolicy
	throttle  jobs.Throttle
	logger    *infra.Logger
}

// SetOptions carries the per-call fields shared by every member of a set.
type SetOptions struct {
	NegativePrompt string
	AspectRatio    string
	Seed           int
}

type predictionPayload struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Seed           int    `json:"seed,omitempty"`
	NumOutputs     int    `json:"num_outputs"`
	OutputFormat   string `json:"output_format"`
}

func New(opts Options) (*Adapter, error) {
	if opts.Runner == nil {
		return nil, errors.New("image: runner is required")
	}
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("image: endpoint is required")
	}
	throttle := opts.Throttle
	if throttle == nil {
		throttle = jobs.NoDelay{}
	}
	return &Adapter{
		endpoint:  opts.Endpoint,
		version:   strings.TrimSpace(opts.ModelVersion),
		runner:    opts.Runner,
		decorator: opts.Decorator,
		policy:    opts.Policy,
		throttle:  throttle,
		logger:    infra.LoggerOr(opts.Logger),
	}, nil
}

// Generate decorates req and runs it as a single job.
func (a *Adapter) Generate(ctx context.Context, req domain.GenerationRequest) (domain.JobResult, error) {
	spec, err := a.spec(req)
	if err != nil {
		return domain.JobResult{}, err
	}
	return a.runner.Run(ctx, spec.Endpoint, spec.Payload, a.policy)
}

// GenerateVariations renders base through the named styles and runs one job
// per style. An unknown style rejects the whole call before any job starts.
func (a *Adapter) GenerateVariations(ctx context.Context, base string, styles []string, opts SetOptions) (domain.BatchOutcome[prompt.Variant], error) {
	variants, err := prompt.Variations(base, styles)
	if err != nil {
		return domain.BatchOutcome[prompt.Variant]{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrompt, err)
	}
	return a.runSet(ctx, "variations", variants, opts)
}

// GenerateMoodBoard runs up to count themed jobs. count above the template
// set is truncated.
func (a *Adapter) GenerateMoodBoard(ctx context.Context, theme string, count int, opts SetOptions) (domain.BatchOutcome[prompt.Variant], error) {
	variants := prompt.MoodBoard(theme, count)
	if len(variants) == 0 {
		return domain.BatchOutcome[prompt.Variant]{}, fmt.Errorf("%w: mood board theme is empty", domain.ErrInvalidPrompt)
	}
	if count > len(variants) {
		a.logger.Info().Int("requested", count).Int("available", len(variants)).Msg("image: mood board truncated to template set")
	}
	return a.runSet(ctx, "moodboard", variants, opts)
}

func (a *Adapter) runSet(ctx context.Context, kind string, variants []prompt.Variant, opts SetOptions) (domain.BatchOutcome[prompt.Variant], error) {
	build := func(v prompt.Variant) (jobs.JobSpec, error) {
		return a.spec(domain.GenerationRequest{
			Prompt:         v.Prompt,
			NegativePrompt: opts.NegativePrompt,
			Style:          v.Label,
			AspectRatio:    opts.AspectRatio,
			Seed:           opts.Seed,
		})
	}
	logger := a.logger.With().Str("batch", kind).Logger()
	return jobs.RunBatch(ctx, a.runner, variants, build, jobs.BatchConfig{
		Policy:   a.policy,
		Throttle: a.throttle,
		Logger:   &logger,
	})
}

func (a *Adapter) spec(req domain.GenerationRequest) (jobs.JobSpec, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return jobs.JobSpec{}, fmt.Errorf("image: %w", domain.ErrInvalidPrompt)
	}
	req = a.decorator.Apply(req)
	return jobs.JobSpec{
		Endpoint: a.endpoint,
		Payload:  a.payload(req),
	}, nil
}

func (a *Adapter) payload(req domain.GenerationRequest) predictionPayload {
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = "1:1"
	}
	return predictionPayload{
		Version: a.version,
		Input: predictionInput{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			AspectRatio:    aspect,
			Seed:           req.Seed,
			NumOutputs:     1,
			OutputFormat:   "webp",
		},
	}
}
