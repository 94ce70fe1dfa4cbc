// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). Framework settings such as
// ports, TLS, logging and CORS live in WAFFLE's CoreConfig instead.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: mthunzi-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// API key for server-to-server writes. Empty disables API key access.
	APIKey string

	// Access policy. A signed-in identity passes the guard when its email is
	// in AdminEmails or its stored role is in PrivilegedRoles.
	AdminEmails     []string
	PrivilegedRoles []string

	// Identity provider used by /api/auth/sync
	IdentityEnabled     bool
	IdentityUserInfoURL string

	// Rate limiting of failed identity syncs
	RateLimitEnabled      bool
	RateLimitSyncAttempts int           // Failures allowed per window (default: 5)
	RateLimitSyncWindow   time.Duration // Window for counting failures (default: 15m)
	RateLimitSyncLockout  time.Duration // Lockout after the limit is hit (default: 15m)

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string // AWS region
	StorageS3Bucket    string // S3 bucket name
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file

	UploadMaxBytes int64 // Largest accepted upload

	// Built frontend served at /
	SPADir string

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth    string        // Identity sync, denials, logout
	AuditLogAdmin   string        // Role, status, settings and media changes
	AuditLogContent string        // Content create, update and delete
	AuditRetention  time.Duration // Events older than this are purged (0 keeps all)

	// API error ledger
	LedgerEnabled   bool
	LedgerRetention time.Duration // Entries older than this are purged (0 keeps all)

	// Seeding
	SeedAdminEmail    string // Email given the admin role on startup (if set)
	SeedAdminName     string // Name used when the admin user is created
	SeedSampleContent bool   // Fill empty collections with example documents
}
