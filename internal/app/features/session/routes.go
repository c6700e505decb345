// internal/app/features/session/routes.go
package session

import (
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeSession)
		pr.Post("/update", h.HandleUpdate)
	})
	return r
}
