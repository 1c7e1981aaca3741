package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/soaringjerry/pregate/internal/config"
	"github.com/soaringjerry/pregate/internal/services"
)

// seedFromEnv creates the first admin account and loads the starter question pool.
// Both steps are no-ops once data exists.
func seedFromEnv(ctx context.Context, cfg *config.Config, log *zap.Logger, auth *services.AuthService, questions *services.QuestionService) error {
	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			log.Info("admin account created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}

	if cfg.Bootstrap.SeedQuestionsFile == "" {
		return nil
	}
	pool, err := questions.List(ctx)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(pool) > 0 {
		log.Debug("question pool already populated; skipping seed", zap.Int("questions", len(pool)))
		return nil
	}
	data, err := os.ReadFile(cfg.Bootstrap.SeedQuestionsFile)
	if err != nil {
		return fmt.Errorf("read seed questions: %w", err)
	}
	n, err := questions.ImportYAML(ctx, "system", data)
	if err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	log.Info("question pool seeded", zap.String("file", cfg.Bootstrap.SeedQuestionsFile), zap.Int("questions", n))
	return nil
}
