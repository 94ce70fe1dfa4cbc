// internal/app/store/content/contentstore.go
package contentstore

import (
	"context"
	"errors"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no document matches the identifier,
	// including identifiers that are not valid ObjectIDs.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write would duplicate a slug.
	ErrConflict = errors.New("slug already exists")
)

// Store provides access to one content collection. T is the model the
// documents decode into.
type Store[T any] struct {
	c      *mongo.Collection
	schema *schema.Schema
}

// New creates a store for the collection described by s.
func New[T any](db *mongo.Database, s *schema.Schema) *Store[T] {
	return &Store[T]{c: db.Collection(s.Collection), schema: s}
}

// Schema returns the schema the store was built with.
func (s *Store[T]) Schema() *schema.Schema {
	return s.schema
}

// List returns every document matching filter in the schema's sort order.
// The result is never nil.
func (s *Store[T]) List(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(s.schema.Sort))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.schema.Collection, err)
	}
	defer cur.Close(ctx)

	items := make([]T, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.schema.Collection, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Get loads one document. Slugged collections match key against the slug or
// the ObjectID in a single query; others accept only an ObjectID.
func (s *Store[T]) Get(ctx context.Context, key string) (*T, error) {
	filter, ok := s.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, filter)
}

// Count returns the number of documents in the collection.
func (s *Store[T]) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Create inserts a document produced by schema.ParseCreate and returns it
// decoded as T.
func (s *Store[T]) Create(ctx context.Context, doc bson.M) (*T, error) {
	doc["_id"] = primitive.NewObjectID()
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert %s: %w", s.schema.Collection, err)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a merge patch to the document with the given ObjectID and
// returns the updated document. An empty patch returns the document as is.
func (s *Store[T]) Update(ctx context.Context, id string, p schema.Patch) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	filter := bson.M{"_id": oid}
	if p.Empty() {
		return s.findOne(ctx, filter)
	}

	var out T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = s.c.FindOneAndUpdate(ctx, filter, p.Update(), opts).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case wafflemongo.IsDup(err):
		return nil, ErrConflict
	case err != nil:
		return nil, fmt.Errorf("update %s: %w", s.schema.Collection, err)
	}
	return &out, nil
}

// Delete removes the document with the given ObjectID.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.schema.Collection, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var out T
	err := s.c.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.schema.Collection, err)
	}
	return &out, nil
}

func (s *Store[T]) lookup(key string) (bson.M, bool) {
	if key == "" {
		return nil, false
	}
	oid, idErr := primitive.ObjectIDFromHex(key)
	if s.schema.Slugged() {
		if idErr == nil {
			return bson.M{"$or": bson.A{
				bson.M{schema.SlugField: key},
				bson.M{"_id": oid},
			}}, true
		}
		return bson.M{schema.SlugField: key}, true
	}
	if idErr != nil {
		return nil, false
	}
	return bson.M{"_id": oid}, true
}
