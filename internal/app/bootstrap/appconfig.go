// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (FIELDHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS and logging; everything fieldhub itself needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity collaborator. Tokens are HS256 JWTs carrying uid and role.
	IdentitySecret string
	IdentityIssuer string // optional; when set the iss claim must match

	CORSAllowedOrigins []string // browser origins allowed to call the API

	// Community join codes
	JoinCodeLength   int
	JoinCodeAttempts int
	JoinRateLimit    int // join attempts per minute per client address

	// StatsScope is "global" (every intersecting camera and sighting counts)
	// or "community" (only those visible to the caller).
	StatsScope string

	// Image storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // directory for local uploads
	StorageLocalURL  string // URL prefix local uploads are served under

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible endpoint (MinIO etc.); blank for AWS
	StorageS3AccessKey string // blank uses the default credential chain
	StorageS3SecretKey string
	StorageS3PathStyle bool
	StorageS3PublicURL string // public base URL for objects (CDN); optional

	MaxUploadMB int

	// Store-boundary deadlines
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
