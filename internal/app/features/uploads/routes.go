package uploads

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api/uploads behind the bearer token middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/presign", h.HandlePresign)
	return r
}
