// internal/app/store/ledger/ledgerstore.go
package ledgerstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection holding ledger entries.
const CollectionName = "ledger_entries"

// Entry is one API request recorded in the ledger.
type Entry struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	RequestID       string `bson:"request_id" json:"request_id"`
	ClientRequestID string `bson:"client_request_id,omitempty" json:"client_request_id,omitempty"`

	Method   string            `bson:"method" json:"method"`
	Path     string            `bson:"path" json:"path"`
	Query    string            `bson:"query,omitempty" json:"query,omitempty"`
	Headers  map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	RemoteIP string            `bson:"remote_ip" json:"remote_ip"`

	ActorType string `bson:"actor_type" json:"actor_type"` // "api_key", "session", "anonymous"
	ActorID   string `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorName string `bson:"actor_name,omitempty" json:"actor_name,omitempty"`

	RequestBodySize    int64  `bson:"request_body_size" json:"request_body_size"`
	RequestBodyHash    string `bson:"request_body_hash,omitempty" json:"request_body_hash,omitempty"`
	RequestBodyPreview string `bson:"request_body_preview,omitempty" json:"request_body_preview,omitempty"`
	RequestContentType string `bson:"request_content_type,omitempty" json:"request_content_type,omitempty"`

	StatusCode   int    `bson:"status_code" json:"status_code"`
	ResponseSize int64  `bson:"response_size" json:"response_size"`
	ErrorClass   string `bson:"error_class,omitempty" json:"error_class,omitempty"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`

	DurationMs  float64   `bson:"duration_ms" json:"duration_ms"`
	StartedAt   time.Time `bson:"started_at" json:"started_at"`
	CompletedAt time.Time `bson:"completed_at" json:"completed_at"`
}

// ErrNotFound is returned when no entry has the requested request ID.
var ErrNotFound = errors.New("ledger entry not found")

// Store provides ledger entry persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new ledger store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Create inserts a new ledger entry.
func (s *Store) Create(ctx context.Context, entry Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByRequestID retrieves a ledger entry by request ID.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Entry, error) {
	var entry Entry
	err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListFilter specifies criteria for listing ledger entries.
type ListFilter struct {
	Method     string
	PathPrefix string
	ErrorClass string

	// StatusCodeMin defaults to 400 so that only failed requests are listed.
	StatusCodeMin int
}

// Recent returns the newest entries matching the filter, newest first.
// limit is clamped to [1, 200].
func (s *Store) Recent(ctx context.Context, filter ListFilter, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (f ListFilter) query() bson.M {
	query := bson.M{}
	if f.Method != "" {
		query["method"] = f.Method
	}
	if f.PathPrefix != "" {
		query["path"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.PathPrefix)}
	}
	if f.ErrorClass != "" {
		query["error_class"] = f.ErrorClass
	}
	min := f.StatusCodeMin
	if min == 0 {
		min = 400
	}
	query["status_code"] = bson.M{"$gte": min}
	return query
}

// DeleteOlderThan deletes entries that started before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{
		"started_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
