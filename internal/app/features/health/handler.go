package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/bayit/internal/app/system/apiresp"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handler holds dependencies needed for health checks. Cache may be nil
// when Redis is not configured.
type Handler struct {
	Database Pinger
	Cache    Pinger
	Log      *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(database, cache Pinger, logger *zap.Logger) *Handler {
	return &Handler{Database: database, Cache: cache, Log: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// 200 {"status":"ok","database":"connected","cache":"connected|disabled|degraded"}
// 503 {"status":"error","database":"disconnected",...} when Mongo is down.
//
// A Redis failure only degrades the response; the catalog falls back to Mongo.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected", Cache: "disabled"}

	if h.Cache != nil {
		resp.Cache = "connected"
		if err := h.Cache.Ping(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Cache = "degraded"
		}
	}

	if err := h.Database.Ping(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		apiresp.JSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}

	apiresp.JSON(w, r, http.StatusOK, resp)
}
