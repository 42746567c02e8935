package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"studio/internal/bootstrap"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/pkg/zip"
)

type itemReport struct {
	Index  int                     `json:"index"`
	Label  string                  `json:"label"`
	Prompt string                  `json:"prompt"`
	URLs   []string                `json:"urls,omitempty"`
	Error  *domain.ErrorDescriptor `json:"error,omitempty"`
}

// batch runs a variation set or a mood board from the command line and
// prints the outcome as JSON, one item per input in submission order.
func main() {
	var (
		kind     string
		base     string
		styles   string
		count    int
		aspect   string
		negative string
		seed     int
		archive  string
	)
	flag.StringVar(&kind, "kind", "moodboard", "batch kind: moodboard or variations")
	flag.StringVar(&base, "prompt", "", "mood board theme or variation base prompt")
	flag.StringVar(&styles, "styles", "", "comma-separated variation styles ("+strings.Join(prompt.VariationStyleNames(), ", ")+")")
	flag.IntVar(&count, "count", 0, "mood board size (0 = every template)")
	flag.StringVar(&aspect, "aspect", "1:1", "aspect ratio")
	flag.StringVar(&negative, "negative", "", "negative prompt")
	flag.IntVar(&seed, "seed", 0, "seed (0 = provider picks)")
	flag.StringVar(&archive, "archive", "", "also write manifest.json and urls.txt into this zip file")
	flag.Parse()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "batch").Str("kind", kind).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("batch: db connection failed")
		}
		defer pool.Close()
	}

	app, err := bootstrap.Build(ctx, cfg, pool, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch: wiring failed")
	}
	if app.ImageJobs == nil {
		fmt.Fprintln(os.Stderr, "image jobs are not configured (JOBS_API_TOKEN and IMAGE_MODEL_VERSION)")
		os.Exit(1)
	}

	opts := image.SetOptions{NegativePrompt: negative, AspectRatio: aspect, Seed: seed}
	var outcome domain.BatchOutcome[prompt.Variant]
	switch kind {
	case "moodboard":
		outcome, err = app.ImageJobs.GenerateMoodBoard(ctx, base, count, opts)
	case "variations":
		outcome, err = app.ImageJobs.GenerateVariations(ctx, base, splitList(styles), opts)
	default:
		fmt.Fprintf(os.Stderr, "unknown kind %q\n", kind)
		os.Exit(1)
	}
	if err != nil && outcome.Total() == 0 {
		fmt.Fprintf(os.Stderr, "batch failed: %v\n", err)
		os.Exit(1)
	}

	items := report(outcome)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(items)

	if archive != "" {
		if err := writeArchive(archive, items); err != nil {
			logger.Error().Err(err).Str("archive", archive).Msg("batch: archive failed")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("batch: interrupted")
	}
	if len(outcome.Failures) > 0 {
		os.Exit(2)
	}
}

func report(outcome domain.BatchOutcome[prompt.Variant]) []itemReport {
	out := make([]itemReport, outcome.Total())
	for _, item := range outcome.Successes {
		out[item.Index] = itemReport{Index: item.Index, Label: item.Input.Label, Prompt: item.Input.Prompt}
		if item.Result != nil {
			out[item.Index].URLs = item.Result.URLs
		}
	}
	for _, item := range outcome.Failures {
		desc := domain.Describe(item.Err)
		out[item.Index] = itemReport{Index: item.Index, Label: item.Input.Label, Prompt: item.Input.Prompt, Error: &desc}
	}
	return out
}

func writeArchive(path string, items []itemReport) error {
	manifest, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	var urls strings.Builder
	for _, item := range items {
		for _, u := range item.URLs {
			urls.WriteString(u)
			urls.WriteByte('\n')
		}
	}
	data, err := zip.ArchiveAssets([]zip.Asset{
		{Filename: "manifest.json", Data: manifest},
		{Filename: "urls.txt", Data: []byte(urls.String())},
	}, time.Now())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
