// internal/app/features/workgroups/workgroups.go
package workgroups

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/policy/workgrouppolicy"
	workgroupstore "github.com/dalemusser/todohub/internal/app/store/workgroups"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/todohub/internal/app/system/inputval"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/dalemusser/todohub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	errNotSignedIn = apperr.New(apperr.Unauthenticated, "Not signed in.")
	errWGNotFound  = apperr.New(apperr.NotFound, "Workgroup not found.")
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /workgroups                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "list workgroups", errNotSignedIn)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.workgroups.ListVisible(ctx, user.ID, user.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list workgroups", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /workgroups                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "create workgroup", errNotSignedIn)
		return
	}

	var in createInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "create workgroup", err)
		return
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "create workgroup", apperr.New(apperr.Validation, res.First()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.workgroups.Create(ctx, in.Name, user.ID, user.Email)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create workgroup", err)
		return
	}
	h.Log.Info("workgroup created", zap.String("workgroup_id", wg.ID.Hex()), zap.String("owner_id", user.ID))
	apierrors.WriteJSON(w, http.StatusOK, wg)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /workgroups/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "view workgroup", errNotSignedIn)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadVisible(ctx, user, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "view workgroup", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, wg)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /workgroups/{id}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDelete removes a workgroup owned by the caller along with its
// pending invitations. Todos labelled with it are left alone.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "delete workgroup", errNotSignedIn)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "delete workgroup", errWGNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.workgroups.DeleteOwned(ctx, id, user.ID); err != nil {
		if errors.Is(err, workgroupstore.ErrNotFound) {
			h.ErrLog.Write(w, r, "delete workgroup", errWGNotFound)
			return
		}
		h.ErrLog.LogServerError(w, r, "delete workgroup", err)
		return
	}

	n, err := h.invites.DeletePendingByWorkgroup(ctx, id)
	if err != nil {
		h.Log.Warn("delete pending invitations failed",
			zap.String("workgroup_id", id.Hex()), zap.Error(err))
	}
	h.Log.Info("workgroup deleted",
		zap.String("workgroup_id", id.Hex()),
		zap.String("owner_id", user.ID),
		zap.Int64("pending_invitations_removed", n))
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{"id": id.Hex()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /workgroups/{id}/leave                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "leave workgroup", errNotSignedIn)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wg, err := h.loadVisible(ctx, user, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "leave workgroup", err)
		return
	}
	if workgrouppolicy.IsOwner(*wg, user) {
		h.ErrLog.Write(w, r, "leave workgroup", apperr.New(apperr.Conflict, "The owner cannot leave the workgroup."))
		return
	}
	if !wg.HasMember(user.Email) {
		h.ErrLog.Write(w, r, "leave workgroup", errWGNotFound)
		return
	}

	if err := h.workgroups.RemoveMember(ctx, wg.ID, user.Email, user.ID); err != nil {
		if errors.Is(err, workgroupstore.ErrNotFound) {
			h.ErrLog.Write(w, r, "leave workgroup", errWGNotFound)
			return
		}
		h.ErrLog.LogServerError(w, r, "leave workgroup", err)
		return
	}
	h.Log.Info("member left workgroup", zap.String("workgroup_id", wg.ID.Hex()), zap.String("user_id", user.ID))
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{"id": wg.ID.Hex()})
}

// loadVisible returns the workgroup when user may see it. Invisible and
// missing workgroups are indistinguishable to the caller.
func (h *Handler) loadVisible(ctx context.Context, user auth.SessionUser, hexID string) (*models.Workgroup, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, errWGNotFound
	}
	wg, err := h.workgroups.GetByID(ctx, id)
	if errors.Is(err, workgroupstore.ErrNotFound) {
		return nil, errWGNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load workgroup", err)
	}
	if !workgrouppolicy.CanView(*wg, user) {
		return nil, errWGNotFound
	}
	return wg, nil
}
