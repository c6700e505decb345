// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). Framework-level settings
// (ports, TLS, logging level, body limits) live in WAFFLE's CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies
	SessionName   string        // Cookie name for sessions (default: todohub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie and bearer token lifetime
	TokenSecret   string        // HS256 secret for bearer tokens (blank disables them)

	// File storage configuration (avatars)
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string // Key prefix (e.g., "todohub/")
	StorageS3PublicURL string // CDN or bucket website base URL

	MaxAvatarBytes int64

	// Email/SMTP configuration; an empty host logs messages instead of sending.
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string
	MailTimeout  time.Duration // Upper bound for one SMTP delivery

	// Handler and database operation timeouts (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Base URL for invitation links, e.g. "https://todo.example.com"
	BaseURL  string
	SiteName string

	// Repair legacy todo documents on startup.
	RepairTodos bool
}
