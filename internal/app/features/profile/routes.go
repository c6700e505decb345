// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers /user/update, /user/update-image and /upload.
func MountRoutes(r chi.Router, h *Handler, sm *auth.SessionManager) {
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/user/update", h.HandleUpdateName)
		pr.Post("/user/update-image", h.HandleUpdateImage)
		pr.Post("/upload", h.HandleUpload)
	})
}
