// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	auditlogfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/authsync"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/contentapi"
	errorsfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/errors"
	healthfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/health"
	ledgerfeature "github.com/mthunzitrust/mthunzisite/internal/app/features/ledger"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/media"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/settingsapi"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/spa"
	"github.com/mthunzitrust/mthunzisite/internal/app/features/usersapi"
	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/audit"
	ledgerstore "github.com/mthunzitrust/mthunzisite/internal/app/store/ledger"
	mediastore "github.com/mthunzitrust/mthunzisite/internal/app/store/media"
	"github.com/mthunzitrust/mthunzisite/internal/app/store/ratelimit"
	settingsstore "github.com/mthunzitrust/mthunzisite/internal/app/store/settings"
	userstore "github.com/mthunzitrust/mthunzisite/internal/app/store/users"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/authz"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/ledger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Layout:
//   - /api/*    JSON API (content, settings, auth, media, users, audit, ledger)
//   - /health*  probes, plus /ready, /readyz and /livez at the root
//   - /files/*  uploaded objects when storage is local
//   - /*        the frontend build, with settings injected into index.html
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Reload the user on every request so role and status changes apply at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db, logger))

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Admin:   appCfg.AuditLogAdmin,
		Content: appCfg.AuditLogContent,
	})

	policy := authz.NewPolicy(appCfg.AdminEmails, appCfg.PrivilegedRoles)
	guard := authz.NewGuard(policy, appCfg.APIKey, logger)
	guard.OnDenied = func(r *http.Request, email string) {
		var userID *primitive.ObjectID
		if u, ok := auth.CurrentUser(r); ok {
			id := u.UserID()
			if !id.IsZero() {
				userID = &id
			}
		}
		auditLogger.AccessDenied(r, userID, email)
	}

	users := userstore.New(db)
	settings := settingsstore.New(db, resources.Settings)
	ledgerStore := ledgerstore.New(db)

	// Identity verification is off when the provider is not configured;
	// /api/auth/sync then reports the service as unavailable.
	var provider auth.IdentityProvider
	if appCfg.IdentityEnabled {
		provider = auth.NewUserInfoProvider(appCfg.IdentityUserInfoURL)
	} else {
		logger.Warn("identity provider disabled; sessions can only be restored, not created")
	}

	// Rate limiting for failed identity syncs (nil if disabled).
	var limiter *ratelimit.Store
	if appCfg.RateLimitEnabled {
		limiter = ratelimit.New(db,
			appCfg.RateLimitSyncAttempts,
			appCfg.RateLimitSyncWindow,
			appCfg.RateLimitSyncLockout,
		)
	}

	errHandler := errorsfeature.NewHandler(logger)
	spaHandler := spa.NewHandler(appCfg.SPADir, settings, logger)
	if !spaHandler.Available() {
		logger.Warn("frontend build not found; / will answer 404 until it is deployed",
			zap.String("spa_dir", appCfg.SPADir))
	}

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(errHandler.Recoverer)

	// Request timeout middleware: the context it sets is the one every store
	// call derives from, so a disconnected client cancels its query.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// ─────────────────────────────────────────────────────────────────────────────
	// JSON API
	// ─────────────────────────────────────────────────────────────────────────────

	r.Route("/api", func(api chi.Router) {
		// Failed API requests are recorded for debugging integrations.
		if appCfg.LedgerEnabled {
			api.Use(ledger.Middleware(ledger.DefaultConfig(ledgerStore, logger)))
		}

		// Set before mounting so every feature router inherits them.
		api.NotFound(errHandler.NotFound)
		api.MethodNotAllowed(errHandler.MethodNotAllowed)

		// /api/achievements, /api/projects, ... /api/team
		contentapi.MountAll(api, contentapi.Deps{
			DB:     db,
			Guard:  guard,
			Audit:  auditLogger,
			Logger: logger,
		})

		settingsHandler := settingsapi.NewHandler(settings, auditLogger, logger)
		api.Mount("/settings", settingsapi.Routes(settingsHandler, guard))

		authHandler := authsync.NewHandler(provider, users, sessionMgr, policy, limiter, auditLogger, logger)
		api.Mount("/auth", authsync.Routes(authHandler))

		mediaHandler := media.NewHandler(mediastore.New(db), deps.FileStorage, appCfg.UploadMaxBytes, auditLogger, logger)
		api.Mount("/upload", media.UploadRoutes(mediaHandler, guard))
		api.Mount("/media", media.Routes(mediaHandler, guard))

		usersHandler := usersapi.NewHandler(users, auditLogger, logger)
		api.Mount("/users", usersapi.Routes(usersHandler, guard))

		auditHandler := auditlogfeature.NewHandler(audit.New(db), logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler, guard))

		ledgerHandler := ledgerfeature.NewHandler(ledgerStore, logger)
		api.Mount("/ledger", ledgerfeature.Routes(ledgerHandler, guard))
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Health, files, frontend
	// ─────────────────────────────────────────────────────────────────────────────

	checks := map[string]healthfeature.Check{
		"frontend": func(ctx context.Context) error {
			if !spaHandler.Available() {
				return fmt.Errorf("%s not found", filepath.Join(appCfg.SPADir, "index.html"))
			}
			return nil
		},
	}
	if taskRunner != nil {
		checks["retention"] = taskRunner.Check
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger, checks)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Uploaded files (local storage only). S3 objects are served by CloudFront.
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Everything else is the frontend: assets as files, routes as index.html.
	r.Handle("/*", spaHandler)

	return r, nil
}
