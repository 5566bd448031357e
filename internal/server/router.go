package server

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	authservice "github.com/findoc-labs/findoc-analyzer/internal/domain/auth/service"
)

// RouterConfig bundles the handlers and cross-cutting dependencies the
// router wires together.
type RouterConfig struct {
	Auth      *AuthHandler
	Templates *TemplateHandler
	Documents *DocumentHandler

	AuthService    *authservice.AuthService
	Metrics        *Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds the API handler chain: CORS, request logging, rate
// limiting and metrics wrap every route; domain routes additionally
// require a valid access token.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	authn := Auth(cfg.AuthService, cfg.Logger)

	mux.HandleFunc("POST /api/auth/register", cfg.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", cfg.Auth.Login)

	protected := func(h http.HandlerFunc) http.Handler {
		return authn(h)
	}

	mux.Handle("GET /api/templates", protected(cfg.Templates.List))
	mux.Handle("POST /api/templates", protected(cfg.Templates.Create))
	mux.Handle("GET /api/templates/{id}", protected(cfg.Templates.Get))
	mux.Handle("PUT /api/templates/{id}", protected(cfg.Templates.Update))
	mux.Handle("DELETE /api/templates/{id}", protected(cfg.Templates.Delete))
	mux.Handle("POST /api/templates/{id}/apply", protected(cfg.Templates.Apply))

	mux.Handle("GET /api/documents", protected(cfg.Documents.List))
	mux.Handle("POST /api/documents", protected(cfg.Documents.Upload))
	mux.Handle("GET /api/documents/search", protected(cfg.Documents.Search))
	mux.Handle("GET /api/documents/{id}", protected(cfg.Documents.Get))
	mux.Handle("DELETE /api/documents/{id}", protected(cfg.Documents.Delete))
	mux.Handle("GET /api/documents/{id}/file", protected(cfg.Documents.Download))
	mux.Handle("GET /api/documents/{id}/securities", protected(cfg.Documents.Securities))
	mux.Handle("GET /api/documents/{id}/securities/export", protected(cfg.Documents.ExportSecurities))
	mux.Handle("POST /api/documents/{id}/ask", protected(cfg.Documents.Ask))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 50
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 100
	}

	middlewares := []Middleware{
		RequestLogger(cfg.Logger),
		RateLimit(rate.Limit(rps), burst),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Instrument(mux))
	}

	handler := Chain(mux, middlewares...)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return corsMiddleware.Handler(handler)
}
