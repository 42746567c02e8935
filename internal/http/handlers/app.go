package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/providers/qwen"
	"studio/internal/providers/text"
	"studio/internal/providers/video"
)

// nginx's "client closed request".
const statusClientClosedRequest = 499

const maxBodyBytes = 1 << 20

type AffirmationGenerator interface {
	GenerateAffirmation(ctx context.Context, req text.AffirmationRequest) (*text.Affirmation, error)
}

type DirectImageGenerator interface {
	GenerateImage(ctx context.Context, req domain.GenerationRequest) (*qwen.Image, error)
}

type ImageJobGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.JobResult, error)
	GenerateVariations(ctx context.Context, base string, styles []string, opts image.SetOptions) (domain.BatchOutcome[prompt.Variant], error)
	GenerateMoodBoard(ctx context.Context, theme string, count int, opts image.SetOptions) (domain.BatchOutcome[prompt.Variant], error)
}

type VideoGenerator interface {
	Generate(ctx context.Context, req video.Request) (domain.JobResult, error)
}

// App holds the adapters behind the HTTP surface. A nil adapter answers 503.
type App struct {
	Text      AffirmationGenerator
	Direct    DirectImageGenerator
	ImageJobs ImageJobGenerator
	VideoJobs VideoGenerator
	Ledger    domain.JobLedger
	Decorator prompt.Decorator
	Logger    *infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]any{"error": domain.ErrorDescriptor{Kind: kind, Message: message}})
}

// fail maps err onto a status code and writes its descriptor.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	desc := domain.Describe(err)
	logger := infra.LoggerOr(a.Logger)
	event := logger.Warn()
	if code >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("kind", desc.Kind).
		Int("status", code).
		Msg("request failed")
	a.json(w, code, map[string]any{"error": desc})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, domain.ErrorKindInvalid, "invalid payload")
		return false
	}
	return true
}

func (a *App) unavailable(w http.ResponseWriter, what string) {
	a.error(w, http.StatusServiceUnavailable, domain.ErrorKindNotConfig, what+" provider is not configured")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPrompt):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrSubmission), errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
