// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/normalize"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the users collection.
const CollectionName = "users"

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrBadRole is returned for a role outside models.AllRoles.
	ErrBadRole = errors.New("invalid role")
	// ErrBadStatus is returned for a status other than active or disabled.
	ErrBadStatus = errors.New(`status must be "active"|"disabled"`)
	// ErrNoEmail is returned when an identity carries no email.
	ErrNoEmail = errors.New("email is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by email address (case-insensitive).
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Identity is what a verified provider sign-in tells us about a user.
type Identity struct {
	Email     string
	Name      string
	AvatarURL string
	Subject   string
}

// SyncIdentity upserts the user for a verified identity, keyed by email.
// Profile fields are refreshed on every sync; role and status are only set
// when the user is first created, so an admin's role change survives.
func (s *Store) SyncIdentity(ctx context.Context, id Identity) (*models.User, error) {
	email := normalize.Email(id.Email)
	if email == "" {
		return nil, ErrNoEmail
	}
	name := normalize.Name(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"full_name":     name,
			"full_name_ci":  text.Fold(name),
			"avatar_url":    id.AvatarURL,
			"last_login_at": now,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"email":      email,
			"role":       models.RoleUser,
			"status":     models.StatusActive,
			"created_at": now,
		},
	}
	if id.Subject != "" {
		update["$set"].(bson.M)["provider_subject"] = id.Subject
	}

	u, err := s.upsertByEmail(ctx, email, update)
	if wafflemongo.IsDup(err) {
		// Two first syncs raced on the unique email index; the loser retries
		// as a plain update.
		u, err = s.upsertByEmail(ctx, email, update)
	}
	if err != nil {
		return nil, fmt.Errorf("sync user %s: %w", email, err)
	}
	return u, nil
}

// EnsureRole creates the user for email if missing and sets its role. Used
// to seed the first administrator.
func (s *Store) EnsureRole(ctx context.Context, email, name, role string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNoEmail
	}
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, ErrBadRole
	}
	name = normalize.Name(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	return s.upsertByEmail(ctx, email, bson.M{
		"$set": bson.M{
			"role":       role,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"email":        email,
			"full_name":    name,
			"full_name_ci": text.Fold(name),
			"status":       models.StatusActive,
			"created_at":   now,
		},
	})
}

func (s *Store) upsertByEmail(ctx context.Context, email string, update bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var u models.User
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Role   string
	Status string
	// Search matches the start of the folded name or the email.
	Search string
}

// List returns users sorted by name. The result is never nil.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	query := bson.M{}
	if role := normalize.Role(f.Role); role != "" {
		query["role"] = role
	}
	if st := normalize.Status(f.Status); st != "" {
		query["status"] = st
	}
	if q := normalize.QueryParam(f.Search); q != "" {
		query["$or"] = []bson.M{
			{"full_name_ci": bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(q))}},
			{"email": bson.M{"$regex": regexp.QuoteMeta(normalize.Email(q))}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole changes a user's role and returns the updated user along with the
// role it replaced.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) (*models.User, string, error) {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, "", ErrBadRole
	}
	return s.setField(ctx, id, "role", role)
}

// SetStatus enables or disables a user and returns the updated user along
// with the previous status. Disabled users lose their session on the next
// request.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st string) (*models.User, string, error) {
	st = normalize.Status(st)
	if st != models.StatusActive && st != models.StatusDisabled {
		return nil, "", ErrBadStatus
	}
	return s.setField(ctx, id, "status", st)
}

func (s *Store) setField(ctx context.Context, id primitive.ObjectID, field, value string) (*models.User, string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var before models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		field:        value,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	previous := before.Role
	if field == "status" {
		previous = before.Status
	}
	after := before
	if field == "status" {
		after.Status = value
	} else {
		after.Role = value
	}
	return &after, previous, nil
}

// Count returns the number of users matching filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
