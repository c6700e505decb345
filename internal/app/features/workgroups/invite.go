// internal/app/features/workgroups/invite.go
package workgroups

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /workgroups/invite                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "invite", errNotSignedIn)
		return
	}

	var in inviteInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "invite", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "invite")
	defer cancel()

	inv, err := h.Invitations.Create(ctx, user, strings.TrimSpace(in.WorkgroupID), in.Email)
	if err != nil {
		h.ErrLog.Write(w, r, "invite", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]string{"invitationId": inv.ID.Hex()})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /workgroups/check-invite?id=                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeCheckInvite needs no session: it tells the client whether the
// invitee should sign in or register first.
func (h *Handler) ServeCheckInvite(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Invitations.Check(ctx, strings.TrimSpace(r.URL.Query().Get("id")))
	if err != nil {
		h.ErrLog.Write(w, r, "check invite", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, res)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /workgroups/accept-invite                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "accept invite", apperr.New(apperr.Unauthenticated, "Sign in to accept this invitation."))
		return
	}

	var in acceptInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "accept invite", err)
		return
	}
	id := strings.TrimSpace(in.InvitationID)
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("id"))
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept invite")
	defer cancel()

	wg, err := h.Invitations.Accept(ctx, user, id)
	if err != nil {
		h.ErrLog.Write(w, r, "accept invite", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, wg)
}
