package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func validAppConfig() AppConfig {
	return AppConfig{
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "bayit_test",
		JWTSecret:      strings.Repeat("s", 32),
		JWTTTL:         time.Hour,
		LoginRateLimit: 10,
	}
}

func TestValidateAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid", env: "dev", mutate: func(*AppConfig) {}},
		{name: "short secret", env: "dev", mutate: func(c *AppConfig) { c.JWTSecret = "short" }, wantErr: true},
		{name: "dev secret in dev", env: "dev", mutate: func(c *AppConfig) { c.JWTSecret = devJWTSecret }},
		{name: "dev secret in prod", env: "prod", mutate: func(c *AppConfig) { c.JWTSecret = devJWTSecret }, wantErr: true},
		{name: "zero ttl", env: "dev", mutate: func(c *AppConfig) { c.JWTTTL = 0 }, wantErr: true},
		{name: "no database", env: "dev", mutate: func(c *AppConfig) { c.MongoDatabase = "" }, wantErr: true},
		{name: "google id without secret", env: "dev", mutate: func(c *AppConfig) { c.GoogleClientID = "id" }, wantErr: true},
		{name: "google id and secret", env: "dev", mutate: func(c *AppConfig) {
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
		}},
		{name: "zero rate limit", env: "dev", mutate: func(c *AppConfig) { c.LoginRateLimit = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAppConfig()
			tt.mutate(&cfg)
			err := validateAppConfig(tt.env, cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_BadMongoURI(t *testing.T) {
	cfg := validAppConfig()
	cfg.MongoURI = "postgres://nope"
	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, cfg, zap.NewNop()); err == nil {
		t.Error("expected error for non-mongo URI")
	}
}

func TestBuildHandler_Routes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, validAppConfig(), deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/categories", http.StatusOK},
		{http.MethodGet, "/api/courses", http.StatusOK},
		{http.MethodGet, "/api/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/checkout", http.StatusUnauthorized},
		{http.MethodPost, "/api/uploads/presign", http.StatusUnauthorized},
		{http.MethodPost, "/api/auth/login", http.StatusBadRequest},
		{http.MethodGet, "/auth/google", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestBuildHandler_SignedInUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	appCfg := validAppConfig()
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, appCfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	user := testutil.NewFixtures(t, db).CreateUser(ctx, "Dana", "dana@example.com")
	tokens, err := auth.NewTokens(appCfg.JWTSecret, appCfg.JWTTTL, "bayit")
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	token, err := tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/me status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Uploads are disabled without a bucket.
	req = httptest.NewRequest(http.MethodPost, "/api/uploads/presign",
		strings.NewReader(`{"fileName":"a.png","contentType":"image/png"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("presign status = %d, want 503", rec.Code)
	}
}
