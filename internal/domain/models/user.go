// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a person who has signed in through the identity provider.
//
// Email is the stable key (stored lowercase). ProviderSubject is the
// provider's own identifier, kept for reference.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string             `bson:"email" json:"email"`
	FullName        string             `bson:"full_name" json:"full_name"`
	FullNameCI      string             `bson:"full_name_ci" json:"-"` // folded for sorting
	AvatarURL       string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	ProviderSubject string             `bson:"provider_subject,omitempty" json:"-"`

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status" json:"status"` // active, disabled

	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleUser       = "user"
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleUser,
		RoleEditor,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
