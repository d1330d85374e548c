// Package uploads hands signed-in users presigned URLs for course media.
package uploads

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/bayit/internal/app/system/apiresp"
	"github.com/dalemusser/bayit/internal/app/system/assets"
	"github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Presigner is satisfied by *assets.Uploader.
type Presigner interface {
	PresignPut(ctx context.Context, fileName, contentType string) (assets.Presigned, error)
}

type Handler struct {
	Assets Presigner // nil when storage is not configured
	Log    *zap.Logger
}

func NewHandler(p Presigner, logger *zap.Logger) *Handler {
	return &Handler{Assets: p, Log: logger}
}

type presignRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
}

// HandlePresign handles POST /api/uploads/presign.
func (h *Handler) HandlePresign(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	if h.Assets == nil {
		apiresp.Error(w, r, http.StatusServiceUnavailable, "unavailable", "uploads are not configured")
		return
	}
	var req presignRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Assets.PresignPut(ctx, req.FileName, req.ContentType)
	switch {
	case err == nil:
	case errors.Is(err, assets.ErrUnsupportedType), errors.Is(err, assets.ErrInvalidFileName):
		apiresp.BadRequest(w, r, err.Error())
		return
	default:
		h.Log.Error("presign upload", zap.String("user_id", userID.Hex()), zap.Error(err))
		apiresp.Internal(w, r)
		return
	}

	h.Log.Info("upload presigned",
		zap.String("user_id", userID.Hex()),
		zap.String("key", p.Key),
		zap.String("content_type", req.ContentType))
	apiresp.JSON(w, r, http.StatusOK, p)
}
