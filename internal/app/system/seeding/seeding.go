// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"fmt"

	"github.com/mthunzitrust/mthunzisite/internal/app/resources"
	contentstore "github.com/mthunzitrust/mthunzisite/internal/app/store/content"
	settingsstore "github.com/mthunzitrust/mthunzisite/internal/app/store/settings"
	userstore "github.com/mthunzitrust/mthunzisite/internal/app/store/users"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options selects the optional seed steps.
type Options struct {
	// AdminEmail, when set, is given the admin role on every boot.
	AdminEmail string
	AdminName  string

	// SampleContent fills empty content collections with example documents.
	SampleContent bool
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, opts Options, logger *zap.Logger) error {
	if err := seedSettings(ctx, db, logger); err != nil {
		return err
	}
	if opts.AdminEmail != "" {
		if err := seedAdmin(ctx, db, opts.AdminEmail, opts.AdminName, logger); err != nil {
			return err
		}
	}
	if opts.SampleContent {
		if err := seedContent(ctx, db, logger); err != nil {
			return err
		}
	}
	return nil
}

// seedSettings materializes the settings singleton with its defaults.
func seedSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := settingsstore.New(db, resources.Settings)

	exists, err := store.Exists(ctx)
	if err != nil {
		logger.Error("failed to check site settings", zap.Error(err))
		return err
	}
	if exists {
		return nil
	}
	if _, err := store.Get(ctx); err != nil {
		logger.Error("failed to seed site settings", zap.Error(err))
		return err
	}
	logger.Info("seeded default site settings")
	return nil
}

func seedAdmin(ctx context.Context, db *mongo.Database, email, name string, logger *zap.Logger) error {
	u, err := userstore.New(db).EnsureRole(ctx, email, name, models.RoleAdmin)
	if err != nil {
		logger.Error("failed to seed admin user", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("seed admin %s: %w", email, err)
	}
	logger.Info("ensured admin user", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
	return nil
}

// seedContent inserts the sample documents of each collection that is still
// empty. Samples go through ParseCreate so they get the same defaults and
// slugs as API-created documents.
func seedContent(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	for _, s := range resources.All() {
		docs := samples[s.Collection]
		if len(docs) == 0 {
			continue
		}
		store := contentstore.New[bson.M](db, s)

		n, err := store.Count(ctx)
		if err != nil {
			logger.Error("failed to count collection", zap.String("collection", s.Collection), zap.Error(err))
			return err
		}
		if n > 0 {
			continue
		}

		for _, raw := range docs {
			doc, err := s.ParseCreate([]byte(raw))
			if err != nil {
				return fmt.Errorf("sample %s: %w", s.Collection, err)
			}
			if _, err := store.Create(ctx, doc); err != nil {
				logger.Error("failed to seed sample document",
					zap.String("collection", s.Collection),
					zap.Error(err))
				return err
			}
		}
		logger.Info("seeded sample content",
			zap.String("collection", s.Collection),
			zap.Int("count", len(docs)))
	}
	return nil
}

// Validate checks every sample against its schema without touching the
// database.
func Validate() error {
	for _, s := range resources.All() {
		for _, raw := range samples[s.Collection] {
			if _, err := s.ParseCreate([]byte(raw)); err != nil {
				return fmt.Errorf("sample %s: %w", s.Collection, err)
			}
		}
	}
	return nil
}
