// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/todohub/internal/app/system/inputval"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/dalemusser/todohub/internal/domain/models"
)

var errNotSignedIn = apperr.New(apperr.Unauthenticated, "Not signed in.")

type nameInput struct {
	Name string `json:"name" validate:"required,max=100" label:"Name"`
}

type imageInput struct {
	Image string `json:"image" validate:"required,max=2048" label:"Image"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /user/update                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdateName changes the display name. The session keeps the old name
// until the client calls /session/update.
func (h *Handler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "update name", errNotSignedIn)
		return
	}

	var in nameInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update name", err)
		return
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "update name", apperr.New(apperr.Validation, res.First()))
		return
	}

	h.update(w, r, "update name", func(ctx context.Context) (*models.User, error) {
		return h.users.UpdateName(ctx, uid, in.Name)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /user/update-image                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdateImage(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "update image", errNotSignedIn)
		return
	}

	var in imageInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update image", err)
		return
	}
	in.Image = strings.TrimSpace(in.Image)
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "update image", apperr.New(apperr.Validation, res.First()))
		return
	}
	if !isImageURL(in.Image) {
		h.ErrLog.Write(w, r, "update image", apperr.New(apperr.Validation, "Image must be an http(s) URL or a path on this site."))
		return
	}

	h.update(w, r, "update image", func(ctx context.Context) (*models.User, error) {
		return h.users.UpdateImage(ctx, uid, in.Image)
	})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) (*models.User, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := fn(ctx)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, op, apperr.New(apperr.Unauthenticated, "Account no longer exists."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, op, err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// isImageURL accepts absolute http(s) URLs and site-relative paths such as
// those produced by the local object store.
func isImageURL(s string) bool {
	if inputval.IsValidHTTPURL(s) {
		return true
	}
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") && !strings.ContainsAny(s, " \t\r\n")
}
