// internal/app/features/todos/todos.go
package todos

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/policy/workgrouppolicy"
	todostore "github.com/dalemusser/todohub/internal/app/store/todos"
	workgroupstore "github.com/dalemusser/todohub/internal/app/store/workgroups"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/inputval"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	errNotSignedIn  = apperr.New(apperr.Unauthenticated, "Not signed in.")
	errTodoNotFound = apperr.New(apperr.NotFound, "Todo not found.")
	errBadDeadline  = apperr.New(apperr.Validation, "Deadline must be a date (YYYY-MM-DD) or an RFC 3339 timestamp.")
	errBadWorkgroup = apperr.New(apperr.Validation, "Workgroup not found.")
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /todos                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "list todos", errNotSignedIn)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.todos.ListByOwner(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list todos", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /todos                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "create todo", errNotSignedIn)
		return
	}

	var in createInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "create todo", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "create todo", apperr.New(apperr.Validation, res.First()))
		return
	}
	deadline, ok := parseDeadline(in.DeadlineDate)
	if !ok {
		h.ErrLog.Write(w, r, "create todo", errBadDeadline)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	nt := todostore.NewTodo{Name: in.Name, Project: in.Project, DeadlineDate: deadline}
	if in.WorkgroupID != "" {
		wgID, err := h.checkWorkgroup(ctx, user, in.WorkgroupID)
		if err != nil {
			h.ErrLog.Write(w, r, "create todo", err)
			return
		}
		nt.WorkgroupID = &wgID
	}

	td, err := h.todos.Create(ctx, uid, nt)
	if err != nil {
		h.ErrLog.Write(w, r, "create todo", storeErr(err))
		return
	}
	h.Log.Debug("todo created", zap.String("todo_id", td.ID.Hex()), zap.String("user_id", user.ID))
	apierrors.WriteJSON(w, http.StatusOK, td)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /todos/{id}                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "update todo", errNotSignedIn)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, "update todo", errTodoNotFound)
		return
	}

	var in updateInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "update todo", err)
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "update todo", apperr.New(apperr.Validation, res.First()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p := todostore.Patch{Name: in.Name, Project: in.Project, Completed: in.Completed}
	if in.DeadlineDate != nil {
		d, ok := parseDeadline(*in.DeadlineDate)
		if !ok {
			h.ErrLog.Write(w, r, "update todo", errBadDeadline)
			return
		}
		p.DeadlineDate = &d
	}
	if in.WorkgroupID != nil {
		if strings.TrimSpace(*in.WorkgroupID) == "" {
			p.ClearWorkgroup = true
		} else {
			wgID, err := h.checkWorkgroup(ctx, user, *in.WorkgroupID)
			if err != nil {
				h.ErrLog.Write(w, r, "update todo", err)
				return
			}
			p.WorkgroupID = &wgID
		}
	}

	td, err := h.todos.Update(ctx, id, uid, p)
	if err != nil {
		h.ErrLog.Write(w, r, "update todo", storeErr(err))
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, td)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /todos?id= and DELETE /todos/{id}                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "delete todo", errNotSignedIn)
		return
	}
	raw := chi.URLParam(r, "id")
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		h.ErrLog.Write(w, r, "delete todo", errTodoNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.todos.DeleteOwned(ctx, id, uid); err != nil {
		h.ErrLog.Write(w, r, "delete todo", storeErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkWorkgroup resolves a workgroup label the caller is allowed to use.
func (h *Handler) checkWorkgroup(ctx context.Context, user auth.SessionUser, hexID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return primitive.NilObjectID, errBadWorkgroup
	}
	wg, err := h.workgroups.GetByID(ctx, id)
	if errors.Is(err, workgroupstore.ErrNotFound) {
		return primitive.NilObjectID, errBadWorkgroup
	}
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.Internal, "load workgroup", err)
	}
	if !workgrouppolicy.CanView(*wg, user) {
		return primitive.NilObjectID, errBadWorkgroup
	}
	return id, nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, todostore.ErrNotFound):
		return errTodoNotFound
	case errors.Is(err, todostore.ErrNameRequired):
		return apperr.New(apperr.Validation, "Name is required.")
	case errors.Is(err, todostore.ErrDeadlineRequired):
		return apperr.New(apperr.Validation, "Deadline is required.")
	default:
		return apperr.Wrap(apperr.Internal, "todo store", err)
	}
}
