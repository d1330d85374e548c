package catalog

import "github.com/go-chi/chi/v5"

// Routes returns the public catalog endpoints as a standalone router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}

// Register adds the catalog endpoints to r. The API router shares /api
// with the library endpoints, so both register instead of mounting.
func Register(r chi.Router, h *Handler) {
	r.Get("/categories", h.ServeCategories)
	r.Get("/courses", h.ServeCourses)
	r.Get("/courses/{id}", h.ServeCourse)
	r.Get("/bundles/{id}", h.ServeBundle)
}
