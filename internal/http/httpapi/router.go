package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/http/handlers"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/infra"
	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/middleware"
)

type Options struct {
	JWTSecret     string
	JWTIssuer     string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	CORSOrigins   []string
	// SubmitLimiter throttles job submission; nil disables it.
	SubmitLimiter middleware.Limiter
	// StaticDir is served at /static when artifacts live on local disk.
	StaticDir      string
	RequestTimeout time.Duration
	Logger         infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	auth := middleware.AuthJWT(opts.JWTSecret, opts.JWTIssuer)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.With(chimw.Timeout(timeout)).Post("/v1/auth/google", app.AuthGoogle)

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)

		// Event streams are long-lived and stay outside the request timeout.
		r.Get("/video-jobs/{id}/events", app.VideoJobEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(timeout))

			r.Get("/me", app.Me)
			r.Get("/tokens/transactions", app.Transactions)

			r.Route("/video-jobs", func(r chi.Router) {
				if opts.SubmitLimiter != nil {
					r.With(middleware.RateLimit(opts.SubmitLimiter, opts.Logger)).Post("/", app.CreateVideoJob)
				} else {
					r.Post("/", app.CreateVideoJob)
				}
				r.Get("/", app.ListVideoJobs)
				r.Get("/{id}", app.GetVideoJob)
				r.Get("/{id}/download", app.DownloadVideoJob)
				r.Delete("/{id}", app.DeleteVideoJob)
			})

			r.Get("/settings", app.MySettings)
			r.Post("/settings/reset", app.ResetMySettings)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Get("/defaults", app.GetDefaults)
				r.Put("/defaults", app.UpdateDefaults)
				r.Post("/defaults/reset", app.ResetDefaults)
			})
		})
	})

	return r
}
