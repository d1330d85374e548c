// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from environment variables (BAYIT_*), configuration files,
// or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything here is Bayit's own.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// API tokens
	JWTSecret string        // HS256 signing secret, at least 32 bytes
	JWTTTL    time.Duration // Token lifetime

	// Public origins
	BaseURL     string // This API's origin, used for the Google redirect URL
	FrontendURL string // Where Google sign-in lands with the token

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Redis catalog cache (empty address disables caching)
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	// S3 asset uploads (empty bucket disables /api/uploads)
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string // Key prefix (e.g., "courses/")
	StorageS3Endpoint  string // Custom endpoint for S3-compatible hosts
	StorageS3AccessKey string // Static credentials; blank uses the default chain
	StorageS3SecretKey string
	StoragePublicURL   string // CDN origin for uploaded objects

	// Email/SMTP configuration (empty host logs mail instead of sending)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Library and auth tuning
	EmailVerifyExpiry time.Duration
	MutationRetries   int
	LoginRateLimit    int // Attempts per minute per IP and per email

	SiteName string // Shown in outgoing mail
}
