package card

import "github.com/go-chi/chi/v5"

// MountRoutes registers card routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Patch("/account", h.editAccount)
		r.Post("/account/submit", h.submitAccount)
		r.Patch("/email", h.editEmail)
		r.Post("/email/send", h.submitEmail)
		r.Put("/documents/{documentID}", h.toggleDocument)
	})
}
