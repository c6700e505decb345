// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	errorsfeature "github.com/dalemusser/todohub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/todohub/internal/app/features/health"
	loginfeature "github.com/dalemusser/todohub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/todohub/internal/app/features/logout"
	profilefeature "github.com/dalemusser/todohub/internal/app/features/profile"
	registerfeature "github.com/dalemusser/todohub/internal/app/features/register"
	sessionfeature "github.com/dalemusser/todohub/internal/app/features/session"
	todosfeature "github.com/dalemusser/todohub/internal/app/features/todos"
	workgroupsfeature "github.com/dalemusser/todohub/internal/app/features/workgroups"
	"github.com/dalemusser/todohub/internal/app/system/auth"
	"github.com/dalemusser/todohub/internal/app/system/mailer"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/dalemusser/todohub/internal/app/workflow/invitation"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// todohub builds the session manager (cookies plus optional bearer tokens),
// the invitation mailer and the avatar object store, then mounts the JSON
// feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	if appCfg.TokenSecret != "" {
		tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, sessionMgr.MaxAge(), "todohub")
		if err != nil {
			logger.Error("token issuer init failed", zap.Error(err))
			return nil, err
		}
		sessionMgr.UseTokens(tokens)
	}

	storage, err := newStorage(appCfg)
	if err != nil {
		logger.Error("object storage init failed", zap.Error(err))
		return nil, err
	}

	sender := mailer.NewSender(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		Timeout:  appCfg.MailTimeout,
	}, logger)

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Global auth middleware: loads SessionUser into context from a bearer
	// token or the session cookie.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Uploaded avatars served from disk when using local storage
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Accounts and sessions
	registerHandler := registerfeature.NewHandler(db, errLog, logger)
	r.Mount("/register", registerfeature.Routes(registerHandler))

	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	sessionHandler := sessionfeature.NewHandler(db, sessionMgr, errLog, logger)
	r.Mount("/session", sessionfeature.Routes(sessionHandler, sessionMgr))

	// Todos
	todosHandler := todosfeature.NewHandler(db, errLog, logger)
	r.Mount("/todos", todosfeature.Routes(todosHandler, sessionMgr))

	// Workgroups and invitations
	invites := invitation.New(db, sender, appCfg.BaseURL, appCfg.SiteName, logger)
	workgroupsHandler := workgroupsfeature.NewHandler(db, invites, errLog, logger)
	r.Mount("/workgroups", workgroupsfeature.Routes(workgroupsHandler, sessionMgr))

	// Profile: /user/update, /user/update-image, /upload
	profileHandler := profilefeature.NewHandler(db, storage, appCfg.MaxAvatarBytes, errLog, logger)
	profilefeature.MountRoutes(r, profileHandler, sessionMgr)

	return r, nil
}

// newStorage builds the avatar object store for the configured backend.
func newStorage(appCfg AppConfig) (storage.Store, error) {
	switch appCfg.StorageType {
	case "local":
		return storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
		defer cancel()
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:  appCfg.StorageS3Bucket,
			Region:  appCfg.StorageS3Region,
			Prefix:  appCfg.StorageS3Prefix,
			BaseURL: appCfg.StorageS3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", appCfg.StorageType)
	}
}
