package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/api"
	"github.com/soaringjerry/pregate/internal/config"
	dbstore "github.com/soaringjerry/pregate/internal/db"
	"github.com/soaringjerry/pregate/internal/logger"
	"github.com/soaringjerry/pregate/internal/middleware"
	"github.com/soaringjerry/pregate/internal/services"
	"github.com/soaringjerry/pregate/internal/sessionstore"
)

var _ api.Store = (*dbstore.SQLiteStore)(nil)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	if cfg.Security.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			log.Fatal("JWT_SECRET is required outside development")
		}
		cfg.Security.JWTSecret = "dev-only-secret"
		log.Warn("JWT_SECRET not set; using an insecure development secret")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	b, err := bootstrappingTheApp(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer b.close()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           b.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("pregate listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.App.Env),
			zap.Duration("min_submission_time", cfg.Screening.MinSubmissionTime))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info("waiting for in-flight requests before shutdown")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server exiting")
}

// app holds the assembled router and whatever must be closed on exit.
type app struct {
	router  *api.Router
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func bootstrappingTheApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}
	checks := map[string]api.Pinger{}

	// Primary store
	var store api.Store
	if cfg.Storage.SQLitePath != "" {
		sqlDB, err := dbstore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		applied, err := dbstore.RunMigrations(ctx, sqlDB, cfg.Storage.MigrationsDir)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		sqliteStore, err := dbstore.NewSQLiteStore(sqlDB, log.Named("sqlite"))
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sqliteStore.Close() })
		store = sqliteStore
		log.Info("sqlite store ready", zap.String("path", cfg.Storage.SQLitePath), zap.Int("migrations_applied", applied))
	} else {
		store = api.NewMemoryStore()
		log.Warn("SQLITE_PATH not set; data is kept in memory only")
	}

	// Ledger
	var ledger services.SubmissionLedger = store
	if cfg.Mongo.URI != "" {
		mongoLedger, err := dbstore.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoLedger.Close(cctx)
		})
		ledger = mongoLedger
		checks["mongo"] = mongoLedger
		log.Info("submission ledger on mongodb", zap.String("database", cfg.Mongo.Database))
	}

	// Session bindings
	var sessions services.SessionStore
	if cfg.Redis.Addr != "" {
		redisStore, err := sessionstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = redisStore.Close() })
		sessions = redisStore
		checks["redis"] = redisStore
		log.Info("session bindings on redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		sessions = sessionstore.NewMemoryStore()
	}

	// Services
	tokens := middleware.NewAuthenticator(cfg.Security.JWTSecret)
	auth := services.NewAuthService(store, store, tokens.SignToken, cfg.Security.JWTTTL)
	questions := services.NewQuestionService(store, store, log.Named("questions"))

	if err := seedFromEnv(ctx, cfg, log, auth, questions); err != nil {
		a.close()
		return nil, err
	}

	a.router = api.NewRouter(api.Deps{
		Config:    cfg,
		Log:       log.Named("http"),
		Store:     store,
		Screening: services.NewScreeningService(store, store, sessions, cfg.Screening.SessionTTL, log.Named("screening")),
		Admission: services.NewAdmissionService(services.AdmissionDeps{
			Surveys:    store,
			Questions:  store,
			Ledger:     ledger,
			Sessions:   sessions,
			Audit:      store,
			SessionTTL: cfg.Screening.SessionTTL,
		}, cfg.Screening.MinSubmissionTime, log.Named("admission")),
		Auth:      auth,
		Surveys:   services.NewSurveyService(store, store, log.Named("surveys")),
		Questions: questions,
		Ledger:    services.NewLedgerService(store, ledger, store),
		Tokens:    tokens,
		Login:     middleware.NewLoginGuard(cfg.Security.LoginAttemptsPerMinute, cfg.Security.LoginBlock),
		Checks:    checks,
	})
	return a, nil
}
