package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Categories group events so each can be routed to MongoDB, zap, both or
// neither.
const (
	CategoryAuth    = "auth"
	CategoryAdmin   = "admin"
	CategoryContent = "content"
)

// Categories lists every category in display order.
func Categories() []string {
	return []string{CategoryAuth, CategoryAdmin, CategoryContent}
}

// CategoryAuth events.
const (
	EventIdentitySynced  = "identity_synced"
	EventAccessDenied    = "access_denied"
	EventSyncFailed      = "sync_failed"
	EventSyncRateLimited = "sync_rate_limited"
	EventLogout          = "logout"
)

// CategoryAdmin events.
const (
	EventRoleChanged     = "role_changed"
	EventStatusChanged   = "status_changed"
	EventSettingsUpdated = "settings_updated"
	EventMediaUploaded   = "media_uploaded"
	EventMediaDeleted    = "media_deleted"
)

// CategoryContent events.
const (
	EventContentCreated = "content_created"
	EventContentUpdated = "content_updated"
	EventContentDeleted = "content_deleted"
)

// Event is one audit_logs document.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	Category  string             `bson:"category" json:"category"`
	EventType string             `bson:"event_type" json:"event_type"`

	// UserID is the user the event is about; ActorID and Actor name whoever
	// caused it. Actor is an email or "api-key".
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Actor   string              `bson:"actor,omitempty" json:"actor,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`

	Success       bool              `bson:"success" json:"success"`
	FailureReason string            `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	Details       map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}
