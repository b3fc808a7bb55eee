package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// RouterOptions carries the cross-cutting pieces the route tree needs.
type RouterOptions struct {
	App            *handlers.App
	Verifier       middleware.SubjectVerifier
	CountryLookup  middleware.CountryLookup
	DefaultLocale  string
	AllowedOrigins []string
	RateLimit      int
}

func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.App.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.Locale(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", opts.App.Health)

		// Metered operations verify the bearer token themselves so a bad
		// credential is refused before any account access.
		r.Post("/generate", opts.App.Generate)
		r.Post("/proofread", opts.App.Proofread)

		r.Get("/me", opts.App.Me)
		r.Get("/models", opts.App.Models)
		r.Get("/templates", opts.App.Templates)
		r.Get("/languages", opts.App.Languages)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(opts.Verifier))
			r.Post("/plans/select", opts.App.SelectPlan)
		})
	})

	return r
}
