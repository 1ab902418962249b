package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/unrolled/secure"
)

type RouterConfig struct {
	Logger      *slog.Logger
	CORSOrigins []string
	Production  bool
	Metrics     *metrics.Metrics
	// SensitiveLimit caps pay and unlock calls per actor per minute.
	SensitiveLimit int
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, payrollHandler PayrollHandler, salaryHandler SalaryHandler, auditHandler AuditHandler) *chi.Mux {
	r := chi.NewRouter()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SensitiveLimit < 1 {
		cfg.SensitiveLimit = 10
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !cfg.Production,
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(secureMiddleware.Handler)
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))
	r.Use(cfg.Metrics.Middleware)

	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService))

		r.Route("/payrolls", func(r chi.Router) {
			r.Get("/", payrollHandler.List)
			r.Get("/overview", payrollHandler.Overview)
			r.Get("/export.csv", payrollHandler.ExportCSV)

			r.Post("/generate", payrollHandler.Generate)
			r.Post("/generate/async", payrollHandler.GenerateAsync)
			r.Post("/approve", payrollHandler.Approve)
			r.Post("/lock", payrollHandler.Lock)

			r.Group(func(r chi.Router) {
				r.Use(middleware.SensitiveRateLimit(cfg.SensitiveLimit, time.Minute))
				r.Post("/pay", payrollHandler.Pay)
				r.Post("/unlock", payrollHandler.Unlock)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", payrollHandler.Get)
				r.Post("/approve", payrollHandler.ApproveOne)
				r.Get("/payslip.pdf", payrollHandler.Payslip)
			})
		})

		r.Route("/salary-structures/{userID}", func(r chi.Router) {
			r.Put("/", salaryHandler.Upsert)
			r.Get("/history", salaryHandler.History)
			r.Get("/resolve", salaryHandler.Resolve)
		})

		r.Get("/audit", auditHandler.List)
	})
	return r
}
