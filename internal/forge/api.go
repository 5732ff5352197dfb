package forge

import (
	"context"
	"fmt"
	"time"
)

// Role is a user's standing in an organization or group.
type Role string

const (
	RoleNone   Role = "none"
	RoleMember Role = "member"
	RoleOwner  Role = "owner"
)

// Repository is what a forge reports about a repository. Owner is the
// account login or namespace path; OwnerID is only meaningful for personal
// repositories.
type Repository struct {
	Host        Host      `json:"host"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"owner_id"`
	IsOrg       bool      `json:"is_org"`
	Description string    `json:"description,omitempty"`
	WebURL      string    `json:"web_url"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Account is the forge user behind an access token.
type Account struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// API is the subset of a forge's REST API the service depends on. An empty
// token issues anonymous requests.
type API interface {
	GetRepository(ctx context.Context, token string, ref RepoRef) (*Repository, error)
	GetOrgRole(ctx context.Context, token, org, userID string) (Role, error)
	CurrentUser(ctx context.Context, token string) (*Account, error)
}

// Clients maps each host to its API client.
type Clients map[Host]API

func (c Clients) For(host Host) (API, error) {
	api, ok := c[host]
	if !ok || api == nil {
		return nil, fmt.Errorf("%w: no client for %q", ErrUnsupportedHost, host)
	}
	return api, nil
}
