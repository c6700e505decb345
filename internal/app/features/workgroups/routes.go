// internal/app/features/workgroups/routes.go
package workgroups

import (
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Reached from the emailed link before the invitee has a session.
	r.Get("/check-invite", h.ServeCheckInvite)
	r.Get("/accept-invite", h.ServeCheckInvite)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Post("/invite", h.HandleInvite)
		pr.Post("/accept-invite", h.HandleAcceptInvite)
		pr.Get("/{id}", h.ServeView)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/leave", h.HandleLeave)
	})
	return r
}
