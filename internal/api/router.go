package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/config"
	"github.com/soaringjerry/pregate/internal/middleware"
	"github.com/soaringjerry/pregate/internal/services"
)

// Deps is everything the router needs. Services are built by the caller so the same store
// wiring serves the server and the tests.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Store     Store
	Screening *services.ScreeningService
	Admission *services.AdmissionService
	Auth      *services.AuthService
	Surveys   *services.SurveyService
	Questions *services.QuestionService
	Ledger    *services.LedgerService
	Tokens    *middleware.Authenticator
	Login     *middleware.LoginGuard
	// Checks are pinged by /health in addition to Store.
	Checks map[string]Pinger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg       *config.Config
	log       *zap.Logger
	checks    map[string]Pinger
	screening *services.ScreeningService
	admission *services.AdmissionService
	auth      *services.AuthService
	surveys   *services.SurveyService
	questions *services.QuestionService
	ledger    *services.LedgerService
	tokens    *middleware.Authenticator
	login     *middleware.LoginGuard
	now       func() time.Time
}

func NewRouter(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	login := d.Login
	if login == nil {
		login = middleware.NewLoginGuard(d.Config.Security.LoginAttemptsPerMinute, d.Config.Security.LoginBlock)
	}
	checks := map[string]Pinger{}
	for name, p := range d.Checks {
		checks[name] = p
	}
	if d.Store != nil {
		checks["store"] = d.Store
	}
	return &Router{
		cfg:       d.Config,
		log:       log,
		checks:    checks,
		screening: d.Screening,
		admission: d.Admission,
		auth:      d.Auth,
		surveys:   d.Surveys,
		questions: d.Questions,
		ledger:    d.Ledger,
		tokens:    d.Tokens,
		login:     login,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handler assembles the middleware chain and routes.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	if rt.cfg.App.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.LocaleMiddleware)
	r.Use(middleware.Recoverer(rt.log))
	r.Use(middleware.RequestLogger(rt.log))
	r.Use(middleware.SecureHeaders(!rt.cfg.IsDevelopment()))
	r.Use(middleware.CORS(rt.cfg.App.CORSOrigins))

	r.Get("/health", rt.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.RateLimit(rt.cfg.App.RateLimitMax, rt.cfg.App.RateLimitWindow))

		r.Route("/survey", func(r chi.Router) {
			r.Post("/submit", rt.handleSubmit)
			r.Get("/{inviteToken}", rt.handleIssue)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(rt.tokens.WithAuth)
			r.With(rt.login.Limit).Post("/login", rt.handleLogin)
			r.Post("/logout", rt.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", rt.handleMe)
				r.Get("/audit", rt.handleAudit)

				r.Route("/surveys", func(r chi.Router) {
					r.Get("/", rt.handleListSurveys)
					r.Post("/", rt.handleCreateSurvey)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", rt.handleGetSurvey)
						r.Patch("/", rt.handleUpdateSurvey)
						r.Get("/responses", rt.handleListResponses)
						r.Get("/responses/export", rt.handleExportResponses)
						r.Get("/stats", rt.handleStats)
						// the pool is global; the survey id only scopes the URL
						r.Get("/questions", rt.handleListQuestions)
						r.Post("/questions", rt.handleCreateQuestion)
					})
				})

				r.Route("/questions", func(r chi.Router) {
					r.Get("/", rt.handleListQuestions)
					r.Post("/", rt.handleCreateQuestion)
					r.Post("/import", rt.handleImportQuestions)
					r.Patch("/{id}", rt.handleUpdateQuestion)
					r.Delete("/{id}", rt.handleDeleteQuestion)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, http.StatusNotFound, rt.t(r, "resource.not_found"), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), nil)
	})
	return r
}

// GET /health
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	deps := make(map[string]string, len(rt.checks))
	for name, p := range rt.checks {
		if err := p.Ping(ctx); err != nil {
			rt.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"environment":  rt.cfg.App.Env,
		"version":      rt.cfg.App.Version,
		"timestamp":    rt.now().Format(time.RFC3339),
		"message":      rt.t(r, "health.ok"),
		"dependencies": deps,
	})
}
