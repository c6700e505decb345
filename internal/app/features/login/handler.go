// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
	}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned whenever a session is issued or refreshed.
type SessionResponse struct {
	Token     string           `json:"token,omitempty"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      auth.SessionUser `json:"user"`
}

var errBadCredentials = apperr.New(apperr.Unauthenticated, "Invalid email or password.")

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "login", err)
		return
	}
	email := normalize.Email(in.Email)
	if email == "" || in.Password == "" {
		h.ErrLog.Write(w, r, "login", errBadCredentials)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, "login", errBadCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load user", err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, in.Password) {
		h.Log.Info("login rejected: bad password", zap.String("user_id", user.ID.Hex()))
		h.ErrLog.Write(w, r, "login", errBadCredentials)
		return
	}

	su := auth.SessionUser{
		ID:        user.ID.Hex(),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.Image,
	}
	WriteSession(w, r, h.SessionMgr, h.ErrLog, su)
	h.Log.Info("user signed in", zap.String("user_id", su.ID))
}

// WriteSession signs su in and writes a SessionResponse.
func WriteSession(w http.ResponseWriter, r *http.Request, sm *auth.SessionManager, errLog *apierrors.ErrorLogger, su auth.SessionUser) {
	token, exp, err := sm.Establish(w, r, su)
	if err != nil {
		errLog.LogServerError(w, r, "establish session", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, SessionResponse{Token: token, ExpiresAt: exp, User: su})
}
