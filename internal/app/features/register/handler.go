// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/todohub/internal/app/system/apperr"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/inputval"
	"github.com/dalemusser/todohub/internal/app/system/normalize"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

func NewHandler(db *mongo.Database, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Log:    logger,
		ErrLog: errLog,
	}
}

type registerInput struct {
	Email    string `json:"email" validate:"required,mailbox,max=254" label:"Email"`
	Password string `json:"password" validate:"required,min=6,max=72" label:"Password"`
	Name     string `json:"name" validate:"max=100" label:"Name"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRegister creates an account. It does not sign the caller in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := apierrors.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, "register", err)
		return
	}
	in.Email = normalize.Email(in.Email)
	in.Name = normalize.Name(in.Name)
	if res := inputval.Validate(in); res.HasErrors() {
		h.ErrLog.Write(w, r, "register", apperr.New(apperr.Validation, res.First()))
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).Create(ctx, in.Email, hash, in.Name)
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		h.ErrLog.Write(w, r, "register", apperr.New(apperr.Validation, "An account with this email already exists."))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create user", err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", user.ID.Hex()))
	apierrors.WriteJSON(w, http.StatusCreated, map[string]any{"user": user})
}
