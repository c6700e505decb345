// internal/app/features/workgroups/handler.go
package workgroups

import (
	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	invitationstore "github.com/dalemusser/todohub/internal/app/store/invitations"
	workgroupstore "github.com/dalemusser/todohub/internal/app/store/workgroups"
	"github.com/dalemusser/todohub/internal/app/workflow/invitation"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the workgroup and invitation endpoints.
type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	ErrLog      *apierrors.ErrorLogger
	Invitations *invitation.Service

	workgroups *workgroupstore.Store
	invites    *invitationstore.Store
}

func NewHandler(db *mongo.Database, invites *invitation.Service, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		Invitations: invites,
		workgroups:  workgroupstore.New(db),
		invites:     invitationstore.New(db),
	}
}
