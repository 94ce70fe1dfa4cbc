// Package audit persists security and editorial events to audit_logs.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the audit collection.
const CollectionName = "audit_logs"

// DefaultLimit is the page size when QueryFilter.Limit is unset.
const DefaultLimit = 100

// QueryFilter narrows Query. Zero fields do not filter.
type QueryFilter struct {
	UserID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time // inclusive
	Until     *time.Time // inclusive

	// Before continues a listing after the last event of the previous page.
	Before *primitive.ObjectID
	Limit  int64
}

func (f QueryFilter) match() bson.M {
	m := bson.M{}
	if f.UserID != nil {
		m["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		m["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.EventType != "" {
		m["event_type"] = f.EventType
	}
	window := bson.M{}
	if f.Since != nil {
		window["$gte"] = *f.Since
	}
	if f.Until != nil {
		window["$lte"] = *f.Until
	}
	if len(window) > 0 {
		m["created_at"] = window
	}
	if f.Before != nil {
		m["_id"] = bson.M{"$lt": *f.Before}
	}
	return m
}

// Store reads and writes audit events.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Log inserts e, assigning an ID and timestamp when missing.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// Query returns matching events newest first. Ties on created_at are
// broken by _id so Before paging is stable.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, f.match(), opts)
	if err != nil {
		return nil, err
	}
	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns how many events match f. Before and Limit are ignored.
func (s *Store) Count(ctx context.Context, f QueryFilter) (int64, error) {
	f.Before = nil
	return s.c.CountDocuments(ctx, f.match())
}

// DeleteOlderThan removes events created before cutoff and reports how many
// went. It satisfies the retention job's Purger.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
