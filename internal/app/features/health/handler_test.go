package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/bayit/internal/app/features/health"
	"github.com/dalemusser/bayit/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	up   = health.PingerFunc(func(context.Context) error { return nil })
	down = health.PingerFunc(func(context.Context) error { return errors.New("connection refused") })
)

func TestServe(t *testing.T) {
	tests := []struct {
		name       string
		db         health.Pinger
		cache      health.Pinger
		wantStatus int
		wantDB     string
		wantCache  string
	}{
		{"all up", up, up, http.StatusOK, "connected", "connected"},
		{"no cache", up, nil, http.StatusOK, "connected", "disabled"},
		{"cache down", up, down, http.StatusOK, "connected", "degraded"},
		{"db down", down, up, http.StatusServiceUnavailable, "disconnected", "connected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(tt.db, tt.cache, zap.NewNop())
			rec := httptest.NewRecorder()
			h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
			var body struct {
				Database string `json:"database"`
				Cache    string `json:"cache"`
			}
			testutil.DecodeJSON(t, rec, &body)
			if body.Database != tt.wantDB || body.Cache != tt.wantCache {
				t.Errorf("body = %+v, want database=%s cache=%s", body, tt.wantDB, tt.wantCache)
			}
		})
	}
}

func TestServe_RealMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := db.Client()
	h := health.NewHandler(health.PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
