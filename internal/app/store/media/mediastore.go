// Package mediastore records uploaded objects for the media library.
package mediastore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for media records.
const CollectionName = "media"

// ErrNotFound is returned when no media record matches the id.
var ErrNotFound = errors.New("media not found")

// Store provides access to the media collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new media store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// CreateInput contains the input for recording an upload.
type CreateInput struct {
	Name        string
	StoragePath string
	URL         string
	Size        int64
	ContentType string
	CreatedByID primitive.ObjectID
}

// Create records an uploaded object.
func (s *Store) Create(ctx context.Context, input CreateInput) (*models.Media, error) {
	m := models.Media{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		NameCI:      text.Fold(input.Name),
		StoragePath: input.StoragePath,
		URL:         input.URL,
		Size:        input.Size,
		ContentType: input.ContentType,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		CreatedByID: input.CreatedByID,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID retrieves a media record by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Media, error) {
	var m models.Media
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListOptions filters the media list.
type ListOptions struct {
	// Kind restricts results to a FileTypeCategory ("image", "pdf", ...).
	Kind   string
	Search string // substring of the filename
	Limit  int64  // 0 = no limit
}

// List returns media newest first. The result is never nil.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]models.Media, error) {
	filter := bson.M{}
	switch opts.Kind {
	case "":
	case "image", "video", "audio":
		filter["content_type"] = bson.M{"$regex": "^" + opts.Kind + "/"}
	case "pdf":
		filter["content_type"] = "application/pdf"
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		filter["name_ci"] = bson.M{"$regex": regexp.QuoteMeta(text.Fold(q))}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	cur, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Media, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Media{}
	}
	return out, nil
}

// Delete removes a media record.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of media records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// FileTypeCategory returns a category string for a content type.
func FileTypeCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case contentType == "application/pdf":
		return "pdf"
	case strings.Contains(contentType, "spreadsheet") || strings.Contains(contentType, "excel"):
		return "spreadsheet"
	case strings.Contains(contentType, "document") || strings.Contains(contentType, "word"):
		return "document"
	case strings.Contains(contentType, "presentation") || strings.Contains(contentType, "powerpoint"):
		return "presentation"
	default:
		return "file"
	}
}
