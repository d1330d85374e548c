package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the credential endpoints, mounted under /api/auth. limit
// throttles register and login per client IP; nil disables it.
func Routes(h *Handler, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/verify/resend", h.HandleResend)
	})
	r.Post("/verify", h.HandleVerify)
	return r
}
