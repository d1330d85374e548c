// Package catalog serves the public, read-only catalog: categories,
// published courses and bundles.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	lib "github.com/dalemusser/bayit/internal/app/library"
	categorystore "github.com/dalemusser/bayit/internal/app/store/categories"
	coursestore "github.com/dalemusser/bayit/internal/app/store/courses"
	"github.com/dalemusser/bayit/internal/app/system/apiresp"
	"github.com/dalemusser/bayit/internal/app/system/catalogcache"
	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/app/system/paging"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"github.com/dalemusser/bayit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Catalog    *catalogcache.Catalog
	Courses    *coursestore.Store
	Categories *categorystore.Store
	Log        *zap.Logger
}

func NewHandler(catalog *catalogcache.Catalog, courses *coursestore.Store, categories *categorystore.Store, logger *zap.Logger) *Handler {
	return &Handler{Catalog: catalog, Courses: courses, Categories: categories, Log: logger}
}

type categoryView struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type bundleView struct {
	ID         string              `json:"_id"`
	Title      string              `json:"title"`
	PriceCents int64               `json:"priceCents"`
	Courses    []lib.CourseSummary `json:"courses"`
}

// ServeCategories handles GET /api/categories.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		h.Log.Error("list categories", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryView{ID: c.ID.Hex(), Name: c.Name, Slug: c.Slug})
	}
	apiresp.JSON(w, r, http.StatusOK, out)
}

// ServeCourses handles GET /api/courses?category=<slug|id>&after=&before=&limit=.
func (h *Handler) ServeCourses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var f coursestore.ListFilter
	if cat := strings.TrimSpace(query.Get(r, "category")); cat != "" {
		id, err := h.resolveCategory(ctx, cat)
		if errors.Is(err, mongo.ErrNoDocuments) {
			apiresp.Error(w, r, http.StatusNotFound, "not_found", "unknown category")
			return
		}
		if err != nil {
			h.Log.Error("resolve category", zap.String("category", cat), zap.Error(err))
			apiresp.Internal(w, r)
			return
		}
		f.CategoryID = id
	}

	k := paging.NewKeyset(query.Get(r, "before"), query.Get(r, "after"), paging.ParseLimit(r))
	page, err := h.Courses.ListPublished(ctx, f, k)
	if err != nil {
		h.Log.Error("list courses", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}

	cats, err := h.Catalog.Categories(ctx, categoryIDs(page.Items))
	if err != nil {
		h.Log.Error("load categories for course list", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	out := paging.Page[lib.CourseSummary]{
		Items: make([]lib.CourseSummary, 0, len(page.Items)),
		Next:  page.Next,
		Prev:  page.Prev,
	}
	for _, c := range page.Items {
		out.Items = append(out.Items, lib.Summarize(c, cats))
	}
	apiresp.JSON(w, r, http.StatusOK, out)
}

// ServeCourse handles GET /api/courses/{id}. Drafts are reported as not found.
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiresp.BadRequest(w, r, "invalid course id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	found, err := h.Catalog.Courses(ctx, []primitive.ObjectID{id})
	if err != nil {
		h.Log.Error("load course", zap.String("course_id", id.Hex()), zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	c, ok := found[id]
	if !ok || c.Status != models.CourseStatusPublished {
		apiresp.Error(w, r, http.StatusNotFound, "not_found", "course not found")
		return
	}
	cats, err := h.Catalog.Categories(ctx, categoryIDs([]models.Course{c}))
	if err != nil {
		h.Log.Error("load course category", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, lib.Summarize(c, cats))
}

// ServeBundle handles GET /api/bundles/{id}. Unpublished member courses are omitted.
func (h *Handler) ServeBundle(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiresp.BadRequest(w, r, "invalid bundle id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	b, err := h.Catalog.Bundle(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apiresp.Error(w, r, http.StatusNotFound, "not_found", "bundle not found")
		return
	}
	if err != nil {
		h.Log.Error("load bundle", zap.String("bundle_id", id.Hex()), zap.Error(err))
		apiresp.Internal(w, r)
		return
	}

	found, err := h.Catalog.Courses(ctx, b.CourseIDs)
	if err != nil {
		h.Log.Error("load bundle courses", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	courses := make([]models.Course, 0, len(b.CourseIDs))
	for _, cid := range b.CourseIDs {
		if c, ok := found[cid]; ok && c.Status == models.CourseStatusPublished {
			courses = append(courses, c)
		}
	}
	cats, err := h.Catalog.Categories(ctx, categoryIDs(courses))
	if err != nil {
		h.Log.Error("load bundle categories", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}

	out := bundleView{ID: b.ID.Hex(), Title: b.Title, PriceCents: b.PriceCents, Courses: make([]lib.CourseSummary, 0, len(courses))}
	for _, c := range courses {
		out.Courses = append(out.Courses, lib.Summarize(c, cats))
	}
	apiresp.JSON(w, r, http.StatusOK, out)
}

// resolveCategory accepts either an ObjectID hex or a slug.
func (h *Handler) resolveCategory(ctx context.Context, s string) (primitive.ObjectID, error) {
	if id, err := primitive.ObjectIDFromHex(s); err == nil {
		return id, nil
	}
	cat, err := h.Categories.GetBySlug(ctx, normalize.Slug(s))
	if err != nil {
		return primitive.NilObjectID, err
	}
	return cat.ID, nil
}

func categoryIDs(courses []models.Course) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(courses))
	out := make([]primitive.ObjectID, 0, len(courses))
	for _, c := range courses {
		if c.CategoryID.IsZero() {
			continue
		}
		if _, ok := seen[c.CategoryID]; !ok {
			seen[c.CategoryID] = struct{}{}
			out = append(out, c.CategoryID)
		}
	}
	return out
}
