// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"github.com/mthunzitrust/mthunzisite/internal/app/system/auth"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"github.com/mthunzitrust/mthunzisite/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// sessionProjection is the part of a user a request needs.
var sessionProjection = bson.M{"email": 1, "full_name": 1, "avatar_url": 1, "role": 1}

// Fetcher is the auth.UserFetcher backed by the users collection. Disabled
// users are never returned, so disabling someone ends their session on the
// next request.
type Fetcher struct {
	users  *mongo.Collection
	logger *zap.Logger
}

var _ auth.UserFetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher over db.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{users: db.Collection(CollectionName), logger: logger}
}

// FetchUser returns the active user with the given hex ID, or nil.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	filter := bson.M{"_id": oid, "status": bson.M{"$ne": models.StatusDisabled}}
	var u models.User
	err = f.users.FindOne(ctx, filter, options.FindOne().SetProjection(sessionProjection)).Decode(&u)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	case err != nil:
		f.logger.Warn("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	return &auth.SessionUser{
		ID:        userID,
		Name:      u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}
