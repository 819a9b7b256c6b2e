// internal/app/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/fieldhub/internal/app/system/blobstore"
	"github.com/dalemusser/fieldhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the MongoDB client, verifies the server answers, and
// builds the image store. Nothing is left open when it fails.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("fieldhub")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingTimeout := appCfg.TimeoutPing
	if pingTimeout <= 0 {
		pingTimeout = timeouts.DefaultPing
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		logger.Error("mongo ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize),
	)

	blob, err := newBlobStore(ctx, appCfg, logger)
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return DBDeps{}, err
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Blob:          blob,
	}, nil
}

// newBlobStore builds the storage backend named by storage_type and wraps it
// for uploads.
func newBlobStore(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (blobstore.Uploader, error) {
	var backend storage.Store
	switch appCfg.StorageType {
	case "s3":
		baseURL := strings.TrimRight(appCfg.StorageS3PublicURL, "/")
		if baseURL == "" && appCfg.StorageS3Endpoint != "" {
			// S3-compatible servers serve path-style from the endpoint.
			baseURL = strings.TrimRight(appCfg.StorageS3Endpoint, "/") + "/" + appCfg.StorageS3Bucket
		}
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          appCfg.StorageS3Bucket,
			Region:          appCfg.StorageS3Region,
			AccessKeyID:     appCfg.StorageS3AccessKey,
			SecretAccessKey: appCfg.StorageS3SecretKey,
			Endpoint:        appCfg.StorageS3Endpoint,
			UsePathStyle:    appCfg.StorageS3PathStyle,
			Prefix:          strings.Trim(appCfg.StorageS3Prefix, "/"),
			BaseURL:         baseURL,
		})
		if err != nil {
			logger.Error("s3 storage init failed", zap.Error(err))
			return nil, err
		}
		logger.Info("image storage: s3", zap.String("bucket", appCfg.StorageS3Bucket))
		backend = s3
	default:
		local, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  strings.TrimRight(appCfg.StorageLocalURL, "/"),
		})
		if err != nil {
			logger.Error("local storage init failed", zap.Error(err))
			return nil, err
		}
		logger.Info("image storage: local", zap.String("path", appCfg.StorageLocalPath))
		backend = local
	}
	return blobstore.New(backend, "", logger), nil
}
