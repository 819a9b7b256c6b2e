// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minJoinCodeLength keeps codes from being guessable by brute force within
// the join rate limit.
const minJoinCodeLength = 6

// appConfigKeys defines the configuration keys for fieldhub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, identity_secret, etc.
//   - Environment variables: FIELDHUB_MONGO_URI, FIELDHUB_IDENTITY_SECRET, etc.
//   - Command-line flags: --mongo_uri, --identity_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fieldhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Identity collaborator
	{Name: "identity_secret", Default: "", Desc: "HS256 key shared with the identity provider (required outside dev)"},
	{Name: "identity_issuer", Default: "", Desc: "Expected token issuer (blank skips the check)"},

	{Name: "cors_allowed_origins", Default: "http://localhost:3003", Desc: "Comma-separated browser origins allowed to call the API"},

	// Communities
	{Name: "join_code_length", Default: 12, Desc: "Length of issued community join codes (minimum 6)"},
	{Name: "join_code_attempts", Default: 8, Desc: "Draws before giving up on a unique join code"},
	{Name: "join_rate_limit", Default: 20, Desc: "Join attempts per minute per client address"},

	{Name: "stats_scope", Default: "global", Desc: "Area statistics scope: 'global' or 'community'"},

	// Image storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded images"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "images/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint URL (blank for AWS)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key (blank uses the default credential chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},
	{Name: "storage_s3_path_style", Default: false, Desc: "Use path-style S3 addressing"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for stored objects (CDN)"},
	{Name: "max_upload_mb", Default: 10, Desc: "Maximum size of a submission carrying an image, in MB"},

	// Store-boundary deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads and writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for visibility queries and registrations"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for aggregation and uploads"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, FIELDHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FIELDHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		IdentitySecret: appValues.String("identity_secret"),
		IdentityIssuer: appValues.String("identity_issuer"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		JoinCodeLength:   appValues.Int("join_code_length"),
		JoinCodeAttempts: appValues.Int("join_code_attempts"),
		JoinRateLimit:    appValues.Int("join_rate_limit"),

		StatsScope: strings.ToLower(strings.TrimSpace(appValues.String("stats_scope"))),

		StorageType:        strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),
		StorageS3PathStyle: appValues.Bool("storage_s3_path_style"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),
		MaxUploadMB:        appValues.Int("max_upload_mb"),

		TimeoutPing:   appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
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

	env := ""
	if coreCfg != nil {
		env = coreCfg.Env
	}
	if appCfg.IdentitySecret == "" && env != "dev" {
		return fmt.Errorf("identity_secret is required outside dev")
	}

	if _, err := areastats.ParseScope(appCfg.StatsScope); err != nil {
		return err
	}

	if appCfg.JoinCodeLength < minJoinCodeLength {
		return fmt.Errorf("join_code_length must be at least %d, got %d", minJoinCodeLength, appCfg.JoinCodeLength)
	}

	switch appCfg.StorageType {
	case "local":
	case "s3":
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type s3 requires storage_s3_bucket")
		}
		if strings.Trim(appCfg.StorageS3Prefix, "/") == "" {
			return fmt.Errorf("storage_type s3 requires a non-empty storage_s3_prefix")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local or s3)", appCfg.StorageType)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
