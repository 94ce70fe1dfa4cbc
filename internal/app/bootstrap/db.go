// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/indexes"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/seeding"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/validators"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and initializes file storage.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. The client built here is the only one in the process; every store
// receives its database through DBDeps.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	store, err := newFileStorage(ctx, appCfg, logger)
	if err != nil {
		return DBDeps{}, err
	}

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		FileStorage:   store,
	}, nil
}

// newFileStorage builds the object store that backs /api/upload.
func newFileStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appCfg.StorageType {
	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		logger.Info("initialized S3/CloudFront file storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)
		return store, nil
	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		logger.Info("initialized local file storage",
			zap.String("path", appCfg.StorageLocalPath),
			zap.String("url", appCfg.StorageLocalURL),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
}

// EnsureSchema prepares the database before any request is served:
// collections and validators, then indexes (the unique slug and singleton
// indexes back the API's conflict and single-settings guarantees), then
// seed data. WAFFLE bounds ctx with coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	seed := seeding.Options{
		AdminEmail:    appCfg.SeedAdminEmail,
		AdminName:     appCfg.SeedAdminName,
		SampleContent: appCfg.SeedSampleContent,
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"validators", func(ctx context.Context) error { return validators.EnsureAll(ctx, db) }},
		{"indexes", func(ctx context.Context) error { return indexes.EnsureAll(ctx, db) }},
		{"seed", func(ctx context.Context) error { return seeding.SeedAll(ctx, db, seed, logger) }},
	}
	for _, step := range steps {
		start := time.Now()
		if err := step.run(ctx); err != nil {
			logger.Error("schema step failed", zap.String("step", step.name), zap.Error(err))
			return fmt.Errorf("ensure schema (%s): %w", step.name, err)
		}
		logger.Info("schema step done", zap.String("step", step.name), zap.Duration("took", time.Since(start)))
	}
	return nil
}
