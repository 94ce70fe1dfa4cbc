// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// singleton selects the one settings document. The unique index on
// "singleton" makes concurrent first writes collide instead of duplicating.
var singleton = bson.M{"singleton": true}

// Store provides access to the site_settings collection, which holds a
// single document.
type Store struct {
	c      *mongo.Collection
	schema *schema.Schema
}

// New creates a settings store. s describes the fields and their defaults.
func New(db *mongo.Database, s *schema.Schema) *Store {
	return &Store{c: db.Collection(s.Collection), schema: s}
}

// Schema returns the schema the store was built with.
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Get returns the settings, creating the document with defaults when it
// does not exist yet. Creation is a single atomic upsert; if a concurrent
// request created the document first, the duplicate-key error is answered
// with a plain read.
func (s *Store) Get(ctx context.Context) (*models.SiteSettings, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.SiteSettings
	err := s.c.FindOneAndUpdate(ctx, singleton, bson.M{"$setOnInsert": s.onInsert(schema.Patch{})}, opts).Decode(&out)
	if wafflemongo.IsDup(err) {
		err = s.c.FindOne(ctx, singleton).Decode(&out)
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &out, nil
}

// Update merges patch into the settings. When no document exists it is
// created from the defaults with the patch applied, and created is true.
func (s *Store) Update(ctx context.Context, patch schema.Patch) (settings *models.SiteSettings, created bool, err error) {
	update := patch.Update()
	update["$setOnInsert"] = s.onInsert(patch)

	opts := options.Update().SetUpsert(true)
	res, err := s.c.UpdateOne(ctx, singleton, update, opts)
	if wafflemongo.IsDup(err) {
		res, err = s.c.UpdateOne(ctx, singleton, update, opts)
	}
	if err != nil {
		return nil, false, fmt.Errorf("update settings: %w", err)
	}

	var out models.SiteSettings
	if err := s.c.FindOne(ctx, singleton).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("read settings: %w", err)
	}
	return &out, res.UpsertedCount > 0, nil
}

// Exists reports whether the settings document has been created.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	err := s.c.FindOne(ctx, singleton, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// onInsert is the $setOnInsert document: every default the patch does not
// write, plus the timestamps the patch does not carry.
func (s *Store) onInsert(patch schema.Patch) bson.M {
	doc := bson.M{}
	for key, val := range s.schema.Defaults() {
		if !patch.Overlaps(key) {
			doc[key] = val
		}
	}
	now := schema.Now()
	doc["createdAt"] = now
	if !patch.Overlaps("updatedAt") {
		doc["updatedAt"] = now
	}
	return doc
}
