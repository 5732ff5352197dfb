package http

import (
	"context"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/users"
)

// UserStore is the part of users.Repo the profile handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
	UpdateProfile(ctx context.Context, id string, upd users.ProfileUpdate) (*users.User, error)
	ListIdentities(ctx context.Context, userID string) ([]forge.Identity, error)
	DeleteIdentity(ctx context.Context, userID string, host forge.Host) (bool, error)
}

type Handler struct {
	users UserStore
}

func New(users UserStore) *Handler {
	return &Handler{users: users}
}

type linkedIdentity struct {
	forge.Identity
	CanClaim bool `json:"can_claim"`
}

type updateProfileReq struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}
