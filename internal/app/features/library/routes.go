package library

import "github.com/go-chi/chi/v5"

// Routes returns the library endpoints as a standalone router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, h)
	return r
}

// Register adds the library endpoints to r, which must already carry the
// bearer token middleware.
func Register(r chi.Router, h *Handler) {
	r.Get("/me", h.ServeMe)
	r.Post("/purchase", h.HandlePurchase)
	r.Post("/checkout", h.HandleCheckout)
	r.Post("/progress", h.HandleProgress)
	r.Put("/cart", h.HandleSetCart)
}
