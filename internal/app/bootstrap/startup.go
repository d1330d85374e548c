// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. Bayit
// only reports which optional integrations are active.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	logger.Info("bayit starting",
		zap.String("env", coreCfg.Env),
		zap.String("database", appCfg.MongoDatabase),
		zap.Bool("catalog_cache", deps.Redis != nil),
		zap.Bool("smtp", appCfg.MailSMTPHost != ""),
		zap.Bool("uploads", appCfg.StorageS3Bucket != ""),
		zap.Bool("google_sign_in", appCfg.GoogleClientID != ""),
		zap.Int("mutation_retries", appCfg.MutationRetries),
	)
	return nil
}
