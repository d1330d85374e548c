// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	authfeature "github.com/dalemusser/bayit/internal/app/features/auth"
	authgooglefeature "github.com/dalemusser/bayit/internal/app/features/authgoogle"
	catalogfeature "github.com/dalemusser/bayit/internal/app/features/catalog"
	healthfeature "github.com/dalemusser/bayit/internal/app/features/health"
	libraryfeature "github.com/dalemusser/bayit/internal/app/features/library"
	uploadsfeature "github.com/dalemusser/bayit/internal/app/features/uploads"
	"github.com/dalemusser/bayit/internal/app/library"
	bundlestore "github.com/dalemusser/bayit/internal/app/store/bundles"
	categorystore "github.com/dalemusser/bayit/internal/app/store/categories"
	coursestore "github.com/dalemusser/bayit/internal/app/store/courses"
	"github.com/dalemusser/bayit/internal/app/store/emailverify"
	"github.com/dalemusser/bayit/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/bayit/internal/app/store/users"
	"github.com/dalemusser/bayit/internal/app/system/assets"
	"github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/app/system/catalogcache"
	"github.com/dalemusser/bayit/internal/app/system/mailer"
	"github.com/dalemusser/bayit/internal/app/system/metrics"
	"github.com/dalemusser/bayit/internal/app/system/ratelimit"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for Bayit.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It wires stores, the catalog cache and the
// library service, then mounts the feature routers:
//   - /health and /metrics for operators
//   - /auth/google for the browser side of Google sign-in
//   - /api/auth for credential endpoints (rate limited)
//   - /api catalog endpoints (public)
//   - /api library and /api/uploads endpoints (bearer token required)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	tokens, err := auth.NewTokens(appCfg.JWTSecret, appCfg.JWTTTL, "bayit")
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	m := metrics.New()

	users := userstore.New(db)
	courses := coursestore.New(db)
	categories := categorystore.New(db)

	catalog := catalogcache.New(catalogcache.Config{
		Courses:    courses,
		Categories: categories,
		Bundles:    bundlestore.New(db),
		Redis:      deps.Redis,
		TTL:        appCfg.CatalogCacheTTL,
		Log:        logger,
		Metrics:    m,
	})

	svc := library.NewService(users, catalog, logger,
		library.WithRetries(appCfg.MutationRetries),
		library.WithMetrics(m),
	)

	limiter := ratelimit.New(appCfg.LoginRateLimit, appCfg.LoginRateLimit)
	requireUser := tokens.RequireUser(logger)

	r := chi.NewRouter()
	r.Use(m.Middleware)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(mongoPinger(deps), redisPinger(deps), logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Google sign-in is only offered when credentials are configured.
	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(users, oauthstate.New(db, 0), tokens,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.FrontendURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	} else {
		logger.Info("Google sign-in disabled (google_client_id not set)")
	}

	authHandler := &authfeature.Handler{
		Users:       users,
		EmailVerify: emailverify.New(db, appCfg.EmailVerifyExpiry),
		Library:     svc,
		Tokens:      tokens,
		Mailer:      buildMailer(appCfg, logger),
		Limiter:     limiter,
		SiteName:    appCfg.SiteName,
		Log:         logger,
	}

	uploadsHandler, err := buildUploads(appCfg, logger)
	if err != nil {
		return nil, err
	}

	r.Route("/api", func(api chi.Router) {
		api.Mount("/auth", authfeature.Routes(authHandler, limiter.Middleware))

		// Public catalog
		api.Group(func(pub chi.Router) {
			catalogfeature.Register(pub, catalogfeature.NewHandler(catalog, courses, categories, logger))
		})

		// Signed-in user endpoints
		api.Group(func(priv chi.Router) {
			priv.Use(requireUser)
			libraryfeature.Register(priv, libraryfeature.NewHandler(svc, logger))
			priv.Mount("/uploads", uploadsfeature.Routes(uploadsHandler))
		})
	})

	return r, nil
}

func buildMailer(appCfg AppConfig, logger *zap.Logger) mailer.Sender {
	return mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
}

// buildUploads returns an uploads handler. Without a bucket the handler
// answers 503, so the route is always present.
func buildUploads(appCfg AppConfig, logger *zap.Logger) (*uploadsfeature.Handler, error) {
	cfg := assets.Config{
		Region:    appCfg.StorageS3Region,
		Bucket:    appCfg.StorageS3Bucket,
		Prefix:    appCfg.StorageS3Prefix,
		Endpoint:  appCfg.StorageS3Endpoint,
		AccessKey: appCfg.StorageS3AccessKey,
		SecretKey: appCfg.StorageS3SecretKey,
		PublicURL: appCfg.StoragePublicURL,
	}
	if !cfg.Enabled() {
		logger.Info("asset uploads disabled (storage_s3_bucket not set)")
		return uploadsfeature.NewHandler(nil, logger), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()
	up, err := assets.New(ctx, cfg)
	if err != nil {
		logger.Error("asset uploader init failed", zap.Error(err))
		return nil, err
	}
	return uploadsfeature.NewHandler(up, logger), nil
}

func mongoPinger(deps DBDeps) healthfeature.Pinger {
	return healthfeature.PingerFunc(func(ctx context.Context) error {
		return deps.MongoClient.Ping(ctx, nil)
	})
}

// redisPinger returns nil when the cache is disabled.
func redisPinger(deps DBDeps) healthfeature.Pinger {
	if deps.Redis == nil {
		return nil
	}
	return healthfeature.PingerFunc(func(ctx context.Context) error {
		return deps.Redis.Ping(ctx).Err()
	})
}
