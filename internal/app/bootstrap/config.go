// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auditlog"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/normalize"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "MTHUNZI"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MTHUNZI_MONGO_URI, MTHUNZI_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "mthunzi", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "mthunzi-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	// API key configuration (Bearer token for server-to-server writes)
	{Name: "api_key", Default: "", Desc: "API key for write access (leave empty to disable API key auth)"},

	// Access policy
	{Name: "admin_emails", Default: "", Desc: "Comma-separated emails always allowed into the admin"},
	{Name: "privileged_roles", Default: "admin,superadmin", Desc: "Comma-separated user roles allowed into the admin"},

	// Identity provider
	{Name: "identity_enabled", Default: true, Desc: "Enable /api/auth/sync identity verification"},
	{Name: "identity_userinfo_url", Default: auth.DefaultUserInfoURL, Desc: "OAuth2 userinfo endpoint used to verify provider tokens"},

	// Rate limiting configuration
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting of failed identity syncs"},
	{Name: "rate_limit_sync_attempts", Default: 5, Desc: "Max failed syncs before lockout"},
	{Name: "rate_limit_sync_window", Default: "15m", Desc: "Time window for counting failed syncs"},
	{Name: "rate_limit_sync_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	{Name: "upload_max_bytes", Default: 10 << 20, Desc: "Largest accepted upload in bytes"},

	// Frontend
	{Name: "spa_dir", Default: "./web/dist", Desc: "Directory holding the built frontend (index.html and assets)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_content", Default: "all", Desc: "Content event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "0", Desc: "Audit events older than this are purged every 6h (0 keeps all)"},

	// API error ledger
	{Name: "ledger_enabled", Default: true, Desc: "Record failed /api requests in the ledger"},
	{Name: "ledger_retention", Default: "720h", Desc: "Ledger entries older than this are purged every 6h (0 keeps all)"},

	// Seeding configuration
	{Name: "seed_admin_email", Default: "", Desc: "Email of user to grant the admin role on startup"},
	{Name: "seed_admin_name", Default: "Admin", Desc: "Name of the seeded admin user"},
	{Name: "seed_sample_content", Default: false, Desc: "Fill empty content collections with sample documents"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MTHUNZI_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		APIKey: appValues.String("api_key"),

		// Access policy
		AdminEmails:     normalize.List(appValues.String("admin_emails")),
		PrivilegedRoles: normalize.List(appValues.String("privileged_roles")),

		// Identity provider
		IdentityEnabled:     appValues.Bool("identity_enabled"),
		IdentityUserInfoURL: appValues.String("identity_userinfo_url"),

		// Rate limiting
		RateLimitEnabled:      appValues.Bool("rate_limit_enabled"),
		RateLimitSyncAttempts: appValues.Int("rate_limit_sync_attempts"),
		RateLimitSyncWindow:   appValues.Duration("rate_limit_sync_window", 15*time.Minute),
		RateLimitSyncLockout:  appValues.Duration("rate_limit_sync_lockout", 15*time.Minute),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		UploadMaxBytes: int64(appValues.Int("upload_max_bytes")),

		SPADir: appValues.String("spa_dir"),

		// Audit logging
		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAdmin:   appValues.String("audit_log_admin"),
		AuditLogContent: appValues.String("audit_log_content"),
		AuditRetention:  appValues.Duration("audit_retention", 0),

		// Ledger
		LedgerEnabled:   appValues.Bool("ledger_enabled"),
		LedgerRetention: appValues.Duration("ledger_retention", 30*24*time.Hour),

		// Seeding
		SeedAdminEmail:    appValues.String("seed_admin_email"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedSampleContent: appValues.Bool("seed_sample_content"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg, logger)
}

func validateApp(appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StorageType {
	case "local", "":
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local or s3)", appCfg.StorageType)
	}

	for _, role := range appCfg.PrivilegedRoles {
		if !models.IsValidRole(role) {
			return fmt.Errorf("privileged_roles: unknown role %q", role)
		}
	}
	if len(appCfg.AdminEmails) == 0 && len(appCfg.PrivilegedRoles) == 0 {
		logger.Warn("no admin_emails or privileged_roles configured; only the API key can write")
	}

	if appCfg.UploadMaxBytes <= 0 {
		return fmt.Errorf("upload_max_bytes must be positive, got %d", appCfg.UploadMaxBytes)
	}

	for key, v := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_admin":   appCfg.AuditLogAdmin,
		"audit_log_content": appCfg.AuditLogContent,
	} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s: unknown value %q (want all, db, log or off)", key, v)
		}
	}
	return nil
}
