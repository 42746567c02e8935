package image

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/jobs"
	"studio/internal/providers/prompt"
)

type recordedRun struct {
	endpoint string
	payload  predictionPayload
	policy   jobs.PollPolicy
}

// stubRunner fails every run whose prompt contains one of the fail keys.
type stubRunner struct {
	mu   sync.Mutex
	fail []string
	runs []recordedRun
}

func (s *stubRunner) Run(ctx context.Context, endpoint string, payload any, policy jobs.PollPolicy) (domain.JobResult, error) {
	p := payload.(predictionPayload)
	s.mu.Lock()
	s.runs = append(s.runs, recordedRun{endpoint: endpoint, payload: p, policy: policy})
	n := len(s.runs)
	s.mu.Unlock()
	for _, key := range s.fail {
		if strings.Contains(p.Input.Prompt, key) {
			return domain.JobResult{}, &domain.JobFailedError{Handle: "h", Message: "nsfw content detected"}
		}
	}
	return domain.JobResult{Status: domain.JobStatusSucceeded, URLs: []string{"https://cdn.test/" + string(rune('a'+n-1)) + ".webp"}}, nil
}

type countingThrottle struct{ waits int }

func (c *countingThrottle) Wait(ctx context.Context) error {
	c.waits++
	return nil
}

func newTestAdapter(t *testing.T, runner jobs.JobRunner, throttle jobs.Throttle) *Adapter {
	t.Helper()
	a, err := New(Options{
		Endpoint:     "https://jobs.test/v1/predictions",
		ModelVersion: "ver-1",
		Runner:       runner,
		Decorator:    prompt.Decorator{StyleSuffix: "brand look", NegativeSuffix: "no text"},
		Policy:       jobs.PollPolicy{Interval: time.Second, MaxAttempts: 7},
		Throttle:     throttle,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestGenerateDecoratesAndRunsOneJob(t *testing.T) {
	runner := &stubRunner{}
	a := newTestAdapter(t, runner, nil)

	res, err := a.Generate(context.Background(), domain.GenerationRequest{Prompt: "stoneware bowl", Seed: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.FirstURL() == "" {
		t.Fatal("expected an output url")
	}
	if len(runner.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runner.runs))
	}
	run := runner.runs[0]
	if run.endpoint != "https://jobs.test/v1/predictions" {
		t.Fatalf("endpoint = %q", run.endpoint)
	}
	if run.payload.Version != "ver-1" {
		t.Fatalf("version = %q", run.payload.Version)
	}
	if run.payload.Input.Prompt != "stoneware bowl, brand look" {
		t.Fatalf("prompt = %q", run.payload.Input.Prompt)
	}
	if run.payload.Input.NegativePrompt != "no text" {
		t.Fatalf("negative = %q", run.payload.Input.NegativePrompt)
	}
	if run.payload.Input.AspectRatio != "1:1" || run.payload.Input.Seed != 9 {
		t.Fatalf("input = %+v", run.payload.Input)
	}
	if run.policy.MaxAttempts != 7 {
		t.Fatalf("policy = %+v", run.policy)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	runner := &stubRunner{}
	_, err := newTestAdapter(t, runner, nil).Generate(context.Background(), domain.GenerationRequest{Prompt: "  "})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("err = %v, want ErrInvalidPrompt", err)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runner.runs))
	}
}

func TestGenerateVariationsIsolatesFailures(t *testing.T) {
	runner := &stubRunner{fail: []string{"golden hour"}}
	throttle := &countingThrottle{}
	a := newTestAdapter(t, runner, throttle)

	out, err := a.GenerateVariations(context.Background(), "ceramic vase", []string{"minimal", "golden-hour", "film", "monochrome"}, SetOptions{AspectRatio: "4:5"})
	if err != nil {
		t.Fatalf("GenerateVariations: %v", err)
	}
	if len(out.Successes) != 3 || len(out.Failures) != 1 {
		t.Fatalf("successes=%d failures=%d, want 3/1", len(out.Successes), len(out.Failures))
	}
	wantLabels := []string{"minimal", "film", "monochrome"}
	for i, item := range out.Successes {
		if item.Input.Label != wantLabels[i] {
			t.Fatalf("success[%d] = %q, want %q", i, item.Input.Label, wantLabels[i])
		}
	}
	if out.Failures[0].Index != 1 || !errors.Is(out.Failures[0].Err, domain.ErrJobFailed) {
		t.Fatalf("failure = %+v", out.Failures[0])
	}
	if throttle.waits != 3 {
		t.Fatalf("throttle waits = %d, want 3", throttle.waits)
	}
	// the member after the failure is built exactly as without it
	if got := runner.runs[2].payload.Input; got.AspectRatio != "4:5" || !strings.HasPrefix(got.Prompt, "ceramic vase, 35mm film grain") {
		t.Fatalf("third payload = %+v", got)
	}
}

func TestGenerateVariationsUnknownStyle(t *testing.T) {
	runner := &stubRunner{}
	_, err := newTestAdapter(t, runner, nil).GenerateVariations(context.Background(), "vase", []string{"minimal", "glitch"}, SetOptions{})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("err = %v, want ErrInvalidPrompt", err)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runner.runs))
	}
}

func TestGenerateVariationsRepeatedStyle(t *testing.T) {
	runner := &stubRunner{}
	_, err := newTestAdapter(t, runner, nil).GenerateVariations(context.Background(), "vase", []string{"minimal", "film", "minimal"}, SetOptions{})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("err = %v, want ErrInvalidPrompt", err)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runner.runs))
	}
}

func TestGenerateMoodBoardTruncates(t *testing.T) {
	runner := &stubRunner{}
	out, err := newTestAdapter(t, runner, nil).GenerateMoodBoard(context.Background(), "quiet coastal mornings", prompt.MaxMoodBoard+3, SetOptions{})
	if err != nil {
		t.Fatalf("GenerateMoodBoard: %v", err)
	}
	if out.Total() != prompt.MaxMoodBoard {
		t.Fatalf("total = %d, want %d", out.Total(), prompt.MaxMoodBoard)
	}
	if len(runner.runs) != prompt.MaxMoodBoard {
		t.Fatalf("runs = %d, want %d", len(runner.runs), prompt.MaxMoodBoard)
	}
	if !strings.Contains(runner.runs[0].payload.Input.Prompt, "Quiet Coastal Mornings") {
		t.Fatalf("prompt = %q", runner.runs[0].payload.Input.Prompt)
	}
}

func TestGenerateMoodBoardEmptyTheme(t *testing.T) {
	_, err := newTestAdapter(t, &stubRunner{}, nil).GenerateMoodBoard(context.Background(), "", 3, SetOptions{})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("err = %v, want ErrInvalidPrompt", err)
	}
}

func TestGenerateAgainstPredictionAPI(t *testing.T) {
	var polls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/predictions":
			var body predictionPayload
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body.Version != "ver-1" {
				t.Errorf("version = %q", body.Version)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"p-1","status":"starting"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/predictions/p-1":
			polls++
			if polls == 1 {
				_, _ = w.Write([]byte(`{"id":"p-1","status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"p-1","status":"succeeded","output":["https://x/img.png"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var waits []time.Duration
	runner, err := jobs.NewPredictionRunner(jobs.PredictionOptions{
		Provider: "image",
		BaseURL:  srv.URL + "/v1",
		APIToken: "r8_test",
		Sleeper: jobs.SleeperFunc(func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("NewPredictionRunner: %v", err)
	}
	a, err := New(Options{
		Endpoint:     jobs.PredictionsEndpoint(srv.URL + "/v1"),
		ModelVersion: "ver-1",
		Runner:       runner,
		Decorator:    prompt.NewDecorator(),
		Policy:       jobs.PollPolicy{Interval: 2 * time.Second, MaxAttempts: 5},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := a.Generate(context.Background(), domain.GenerationRequest{Prompt: "woven basket"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.FirstURL() != "https://x/img.png" {
		t.Fatalf("url = %q", res.FirstURL())
	}
	if polls != 2 || len(waits) != 1 || waits[0] != 2*time.Second {
		t.Fatalf("polls=%d waits=%v, want 2 polls and one 2s wait", polls, waits)
	}
}
