package handlers

import (
	"net/http"
	"strings"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/providers/text"
	"studio/internal/providers/video"
)

const (
	imageModeDirect = "direct"
	imageModeJob    = "job"
)

type affirmationRequest struct {
	Theme  string `json:"theme"`
	Locale string `json:"locale"`
}

type imageRequest struct {
	Mode           string `json:"mode"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style"`
	AspectRatio    string `json:"aspect_ratio"`
	Seed           int    `json:"seed"`
}

type variationsRequest struct {
	Prompt         string   `json:"prompt"`
	Styles         []string `json:"styles"`
	NegativePrompt string   `json:"negative_prompt"`
	AspectRatio    string   `json:"aspect_ratio"`
	Seed           int      `json:"seed"`
}

type moodBoardRequest struct {
	Theme          string `json:"theme"`
	Count          int    `json:"count"`
	NegativePrompt string `json:"negative_prompt"`
	AspectRatio    string `json:"aspect_ratio"`
	Seed           int    `json:"seed"`
}

type videoRequest struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio"`
	DurationSeconds int    `json:"duration_seconds"`
	Seed            int    `json:"seed"`
	StartImageURL   string `json:"start_image_url"`
}

type batchSuccess struct {
	Index  int              `json:"index"`
	Label  string           `json:"label"`
	Prompt string           `json:"prompt"`
	Result domain.JobResult `json:"result"`
}

type batchFailure struct {
	Index  int                    `json:"index"`
	Label  string                 `json:"label"`
	Prompt string                 `json:"prompt"`
	Error  domain.ErrorDescriptor `json:"error"`
}

type batchResponse struct {
	Total     int            `json:"total"`
	Successes []batchSuccess `json:"successes"`
	Failures  []batchFailure `json:"failures"`
}

func (a *App) Affirmations(w http.ResponseWriter, r *http.Request) {
	if a.Text == nil {
		a.unavailable(w, "text")
		return
	}
	var req affirmationRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Theme) == "" {
		a.error(w, http.StatusBadRequest, domain.ErrorKindInvalid, "theme is required")
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	out, err := a.Text.GenerateAffirmation(r.Context(), text.AffirmationRequest{Theme: req.Theme, Locale: locale})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, out)
}

// Images runs one generation. mode "direct" uses the single-shot provider,
// anything else (default "job") submits and polls a prediction.
func (a *App) Images(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !a.decode(w, r, &req) {
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = imageModeJob
	}
	gen := domain.GenerationRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Style:          req.Style,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	}
	if strings.TrimSpace(gen.Prompt) == "" {
		a.error(w, http.StatusBadRequest, domain.ErrorKindInvalid, "prompt is required")
		return
	}

	switch mode {
	case imageModeDirect:
		if a.Direct == nil {
			a.unavailable(w, "direct image")
			return
		}
		img, err := a.Direct.GenerateImage(r.Context(), a.Decorator.Apply(gen))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, map[string]any{"mode": mode, "image": img})
	case imageModeJob:
		if a.ImageJobs == nil {
			a.unavailable(w, "image")
			return
		}
		result, err := a.ImageJobs.Generate(r.Context(), gen)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusOK, map[string]any{"mode": mode, "result": result})
	default:
		a.error(w, http.StatusBadRequest, domain.ErrorKindInvalid, "mode must be direct or job")
	}
}

func (a *App) ImageVariations(w http.ResponseWriter, r *http.Request) {
	if a.ImageJobs == nil {
		a.unavailable(w, "image")
		return
	}
	var req variationsRequest
	if !a.decode(w, r, &req) {
		return
	}
	outcome, err := a.ImageJobs.GenerateVariations(r.Context(), req.Prompt, req.Styles, image.SetOptions{
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	})
	a.writeBatch(w, r, outcome, err)
}

func (a *App) MoodBoards(w http.ResponseWriter, r *http.Request) {
	if a.ImageJobs == nil {
		a.unavailable(w, "image")
		return
	}
	var req moodBoardRequest
	if !a.decode(w, r, &req) {
		return
	}
	outcome, err := a.ImageJobs.GenerateMoodBoard(r.Context(), req.Theme, req.Count, image.SetOptions{
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	})
	a.writeBatch(w, r, outcome, err)
}

func (a *App) Videos(w http.ResponseWriter, r *http.Request) {
	if a.VideoJobs == nil {
		a.unavailable(w, "video")
		return
	}
	var req videoRequest
	if !a.decode(w, r, &req) {
		return
	}
	result, err := a.VideoJobs.Generate(r.Context(), video.Request{
		Prompt:          req.Prompt,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: req.DurationSeconds,
		Seed:            req.Seed,
		StartImageURL:   req.StartImageURL,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"result": result})
}

// writeBatch answers 200 with both partitions. A batch aborted before any
// item ran (bad input) is a plain error; one interrupted midway still
// reports what it has.
func (a *App) writeBatch(w http.ResponseWriter, r *http.Request, outcome domain.BatchOutcome[prompt.Variant], err error) {
	if err != nil && outcome.Total() == 0 {
		a.fail(w, r, err)
		return
	}
	resp := batchResponse{
		Total:     outcome.Total(),
		Successes: make([]batchSuccess, 0, len(outcome.Successes)),
		Failures:  make([]batchFailure, 0, len(outcome.Failures)),
	}
	for _, item := range outcome.Successes {
		s := batchSuccess{Index: item.Index, Label: item.Input.Label, Prompt: item.Input.Prompt}
		if item.Result != nil {
			s.Result = *item.Result
		}
		resp.Successes = append(resp.Successes, s)
	}
	for _, item := range outcome.Failures {
		resp.Failures = append(resp.Failures, batchFailure{
			Index:  item.Index,
			Label:  item.Input.Label,
			Prompt: item.Input.Prompt,
			Error:  domain.Describe(item.Err),
		})
	}
	a.json(w, http.StatusOK, resp)
}
