// internal/app/features/profile/handler.go
package profile

import (
	apierrors "github.com/dalemusser/todohub/internal/app/features/errors"
	userstore "github.com/dalemusser/todohub/internal/app/store/users"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultMaxAvatarBytes bounds avatar uploads.
const DefaultMaxAvatarBytes = 5 << 20

// Handler owns the profile and avatar handlers.
type Handler struct {
	DB             *mongo.Database
	Log            *zap.Logger
	ErrLog         *apierrors.ErrorLogger
	Storage        storage.Store
	MaxAvatarBytes int64

	users *userstore.Store
}

// NewHandler constructs a Handler bound to the given Mongo database, object
// store and logger.
func NewHandler(db *mongo.Database, store storage.Store, maxAvatarBytes int64, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = DefaultMaxAvatarBytes
	}
	return &Handler{
		DB:             db,
		Log:            logger,
		ErrLog:         errLog,
		Storage:        store,
		MaxAvatarBytes: maxAvatarBytes,
		users:          userstore.New(db),
	}
}
