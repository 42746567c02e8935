package httpapi

import (
	"net/http"
	"time"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	mw "studio/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger          *infra.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   mw.CountryLookup
	// RequestTimeout bounds every generation request; zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RealIP,
		mw.RequestID,
		mw.I18N(opts.DefaultLocale, opts.CountryLookup),
		mw.Logger(opts.Logger),
		middleware.Recoverer,
		mw.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/jobs/{handle}", app.JobStatus)

	// generation calls hold a provider slot for seconds to minutes
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(opts.RateLimitPerMin), mw.Deadline(opts.RequestTimeout))
		r.Post("/v1/affirmations", app.Affirmations)
		r.Post("/v1/images", app.Images)
		r.Post("/v1/images/variations", app.ImageVariations)
		r.Post("/v1/moodboards", app.MoodBoards)
		r.Post("/v1/videos", app.Videos)
	})

	return r
}
