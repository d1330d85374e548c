// Package library serves the signed-in user's course library: purchases,
// checkout, lesson progress, the cart and the user view.
package library

import (
	"context"
	"errors"
	"net/http"
	"strings"

	lib "github.com/dalemusser/bayit/internal/app/library"
	"github.com/dalemusser/bayit/internal/app/system/apiresp"
	"github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxCartItems bounds a single checkout or cart update.
const maxCartItems = 200

type Handler struct {
	Library *lib.Service
	Log     *zap.Logger
}

func NewHandler(svc *lib.Service, logger *zap.Logger) *Handler {
	return &Handler{Library: svc, Log: logger}
}

type purchaseRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

type checkoutItem struct {
	ID       string   `json:"_id" validate:"required"`
	ItemType string   `json:"itemType"`
	Courses  []string `json:"courses"`
}

type checkoutRequest struct {
	CartItems []checkoutItem `json:"cartItems" validate:"max=200,dive"`
}

type progressRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required,max=200"`
}

type cartRequest struct {
	Cart []string `json:"cart" validate:"max=200"`
}

type progressResponse struct {
	Message string       `json:"message"`
	User    lib.UserView `json:"user"`
}

// ServeMe handles GET /api/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Library.View(ctx, userID)
	if err != nil {
		h.writeError(w, r, "load user view", userID, err)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, v)
}

// HandlePurchase handles POST /api/purchase.
func (h *Handler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	var req purchaseRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	courseID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.CourseID))
	if err != nil {
		apiresp.BadRequest(w, r, "invalid courseId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := h.Library.Purchase(ctx, userID, courseID)
	if err != nil {
		h.writeError(w, r, "purchase", userID, err)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, v)
}

// HandleCheckout handles POST /api/checkout.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	var req checkoutRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	items, err := toCartItems(req.CartItems)
	if err != nil {
		apiresp.BadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := h.Library.Checkout(ctx, userID, items)
	if err != nil {
		h.writeError(w, r, "checkout", userID, err)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, v)
}

// HandleProgress handles POST /api/progress.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	var req progressRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	courseID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.CourseID))
	if err != nil {
		apiresp.BadRequest(w, r, "invalid courseId")
		return
	}
	lessonID := strings.TrimSpace(req.LessonID)
	if lessonID == "" {
		apiresp.BadRequest(w, r, "lessonId is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, added, err := h.Library.Progress(ctx, userID, courseID, lessonID)
	if err != nil {
		h.writeError(w, r, "progress", userID, err)
		return
	}
	msg := "Lesson marked complete"
	if !added {
		msg = "Lesson already completed"
	}
	apiresp.JSON(w, r, http.StatusOK, progressResponse{Message: msg, User: v})
}

// HandleSetCart handles PUT /api/cart.
func (h *Handler) HandleSetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apiresp.Unauthorized(w, r, "sign in required")
		return
	}
	var req cartRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	ids, err := parseIDs(req.Cart, "cart")
	if err != nil {
		apiresp.BadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, err := h.Library.SetCart(ctx, userID, ids)
	if err != nil {
		h.writeError(w, r, "set cart", userID, err)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, v)
}

func toCartItems(in []checkoutItem) ([]lib.CartItem, error) {
	out := make([]lib.CartItem, 0, len(in))
	for _, it := range in {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(it.ID))
		if err != nil {
			return nil, errors.New("invalid cart item _id")
		}
		itemType := normalize.ItemType(it.ItemType)
		switch itemType {
		case "":
			itemType = lib.ItemTypeCourse
		case lib.ItemTypeCourse, lib.ItemTypeBundle:
		default:
			return nil, errors.New("itemType must be course or bundle")
		}
		courses, err := parseIDs(it.Courses, "courses")
		if err != nil {
			return nil, err
		}
		out = append(out, lib.CartItem{ID: id, ItemType: itemType, Courses: courses})
	}
	return out, nil
}

func parseIDs(raw []string, field string) ([]primitive.ObjectID, error) {
	if len(raw) > maxCartItems {
		return nil, errors.New("too many " + field + " entries")
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.New("invalid id in " + field)
		}
		out = append(out, id)
	}
	return out, nil
}

// statusFor maps a library error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "already_owned", "conflict":
		return http.StatusConflict
	case "empty_cart":
		return http.StatusBadRequest
	case "not_enrolled":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, userID primitive.ObjectID, err error) {
	kind := lib.Kind(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		h.Log.Error("library "+op+" failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	if kind == "conflict" {
		h.Log.Warn("library "+op+" gave up after concurrent writes", zap.String("user_id", userID.Hex()))
	}
	apiresp.Error(w, r, status, kind, err.Error())
}
