// Package router assembles the HTTP routes of the scheduler service.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/appointment-scheduler/internal/http/middleware"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Scheduling         *scheduling.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int
	ServiceName        string
	Version            string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}

	r.Group(func(public chi.Router) {
		public.Get("/", rootHandler(cfg))
		public.Get("/health", cfg.Scheduling.Health)
		public.Route("/schedule", func(r chi.Router) {
			r.Post("/text", cfg.Scheduling.ScheduleText)
			r.Post("/image", cfg.Scheduling.ScheduleImage)
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Get("/admin/requests", cfg.Scheduling.RecentRequests)
	})

	return r
}

func rootHandler(cfg *Config) http.HandlerFunc {
	name := cfg.ServiceName
	if name == "" {
		name = "appointment-scheduler"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := `{"service":"` + name + `","status":"running"`
		if cfg.Version != "" {
			body += `,"version":"` + cfg.Version + `"`
		}
		body += `}`
		_, _ = w.Write([]byte(body))
	}
}
