// internal/app/store/ratelimit/store.go
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mthunzitrust/mthunzisite/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Attempt tracks failed identity syncs for one key.
type Attempt struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Key          string             `bson:"key"`           // "email:<addr>" or "ip:<addr>"
	AttemptCount int                `bson:"attempt_count"` // failures in the current window
	WindowStart  time.Time          `bson:"window_start"`
	LockedUntil  *time.Time         `bson:"locked_until"`
	LastAttempt  time.Time          `bson:"last_attempt"` // TTL index field
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// Store counts failed identity syncs per key and locks a key out after
// maxAttempts failures inside one window. Store errors fail open: a sync is
// never refused because the counter could not be read.
type Store struct {
	c           *mongo.Collection
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
}

// New creates a new rate limit Store with the given configuration.
func New(db *mongo.Database, maxAttempts int, window, lockout time.Duration) *Store {
	return &Store{
		c:           db.Collection("rate_limits"),
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
	}
}

// Key builds the rate limit key for a sync attempt: the email when the
// provider returned one, otherwise the client IP.
func Key(email, ip string) string {
	if email = normalize.Email(email); email != "" {
		return "email:" + email
	}
	return "ip:" + strings.TrimSpace(ip)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// CheckAllowed reports whether key may attempt another sync, how many
// failures remain before lockout (-1 while locked) and, when locked, the
// lockout expiry.
func (s *Store) CheckAllowed(ctx context.Context, key string) (allowed bool, remaining int, lockedUntil *time.Time) {
	a, err := s.GetAttempt(ctx, key)
	if err != nil || a == nil {
		return true, s.maxAttempts, nil
	}

	now := time.Now()
	if a.LockedUntil != nil {
		if now.Before(*a.LockedUntil) {
			return false, -1, a.LockedUntil
		}
		return true, s.maxAttempts, nil
	}
	if now.After(a.WindowStart.Add(s.window)) {
		return true, s.maxAttempts, nil
	}

	remaining = s.maxAttempts - a.AttemptCount
	if remaining <= 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

// RecordFailure counts a failed sync for key in a single atomic upsert. The
// window restarts when it has elapsed or a previous lockout has expired.
// It reports whether this failure locked the key out, and the lockout
// expiry when the key is locked.
func (s *Store) RecordFailure(ctx context.Context, key string) (lockedOut bool, lockedUntil *time.Time) {
	key = normalizeKey(key)
	now := time.Now().UTC().Truncate(time.Millisecond)
	until := now.Add(s.lockout)

	restart := bson.M{"$or": bson.A{
		// No record, or the window has elapsed.
		bson.M{"$lt": bson.A{bson.M{"$ifNull": bson.A{"$window_start", time.Time{}}}, now.Add(-s.window)}},
		// A lockout that has run out.
		bson.M{"$lt": bson.A{bson.M{"$ifNull": bson.A{"$locked_until", now}}, now}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempt_count": bson.M{"$cond": bson.A{restart, 1, bson.M{"$add": bson.A{"$attempt_count", 1}}}},
			"window_start":  bson.M{"$cond": bson.A{restart, now, "$window_start"}},
			"locked_until":  bson.M{"$cond": bson.A{restart, nil, "$locked_until"}},
			"last_attempt":  now,
			"updated_at":    now,
			"created_at":    bson.M{"$ifNull": bson.A{"$created_at", now}},
		}}},
		{{Key: "$set", Value: bson.M{
			"locked_until": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$gte": bson.A{"$attempt_count", s.maxAttempts}},
					bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$locked_until", nil}}, nil}},
				}},
				until,
				"$locked_until",
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var a Attempt
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"key": key}, pipeline, opts).Decode(&a); err != nil {
		return false, nil
	}
	// The count passes maxAttempts exactly once per window.
	return a.LockedUntil != nil && a.AttemptCount == s.maxAttempts, a.LockedUntil
}

// ClearOnSuccess removes the counter for key after a successful sync.
func (s *Store) ClearOnSuccess(ctx context.Context, key string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"key": normalizeKey(key)})
	return err
}

// GetAttempt returns the counter for key, or nil when there is none.
func (s *Store) GetAttempt(ctx context.Context, key string) (*Attempt, error) {
	var a Attempt
	err := s.c.FindOne(ctx, bson.M{"key": normalizeKey(key)}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
