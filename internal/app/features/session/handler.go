// internal/app/features/session/handler.go
package session

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	"github.com/dalemusser/todohub/internal/app/features/login"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/authz"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the current session's identity.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *apierrors.ErrorLogger
}

// NewHandler creates a new session handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
	}
}

// ServeSession returns the claims of the current session.
//
// Response format:
//
//	{ "user": { "id": "...", "email": "...", "name": "...", "avatarUrl": "..." } }
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	user, _, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "session", apperr.New(apperr.Unauthenticated, "Not signed in."))
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleUpdate reissues the session from the stored profile so name and
// avatar changes show up in the cookie and a fresh token.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := authz.UserCtx(r)
	if !ok {
		h.ErrLog.Write(w, r, "session update", apperr.New(apperr.Unauthenticated, "Not signed in."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, "session update", apperr.New(apperr.Unauthenticated, "Account no longer exists."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user", err)
		return
	}

	login.WriteSession(w, r, h.SessionMgr, h.ErrLog, auth.SessionUser{
		ID:        user.ID.Hex(),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.Image,
	})
}
