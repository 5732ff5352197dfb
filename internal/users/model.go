package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrIdentityInUse means the forge account is already linked to another user.
	ErrIdentityInUse = errors.New("forge account already linked to another user")
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

type User struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
	PhotoURL    string
}

// ProfileUpdate holds the user-editable fields; nil leaves a field unchanged.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}
