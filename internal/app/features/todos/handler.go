// internal/app/features/todos/handler.go
package todos

import (
	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	todostore "github.com/dalemusser/todohub/internal/app/store/todos"
	workgroupstore "github.com/dalemusser/todohub/internal/app/store/workgroups"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the todo endpoints. Every todo is visible only to the user
// who created it.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger

	todos      *todostore.Store
	workgroups *workgroupstore.Store
}

func NewHandler(db *mongo.Database, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		ErrLog:     errLog,
		todos:      todostore.New(db),
		workgroups: workgroupstore.New(db),
	}
}
