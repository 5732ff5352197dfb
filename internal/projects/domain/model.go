package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/oss-listings/claims-backend/internal/forge"
)

var (
	ErrNotFound             = errors.New("project not found")
	ErrInvalidOwnershipType = errors.New("invalid ownership type")
	ErrInvalidTag           = errors.New("invalid project tag")
	ErrNotProjectOwner      = errors.New("only the project owner can do this")
	ErrInvalidLogoURL       = errors.New("logo url was not issued for this project")
	ErrNoRepository         = errors.New("project has no supported repository")
)

// OwnershipType classifies a claim as personal-account or organization based.
type OwnershipType string

const (
	OwnershipPersonal     OwnershipType = "personal"
	OwnershipOrganization OwnershipType = "organization"
)

func ParseOwnershipType(s string) (OwnershipType, error) {
	switch OwnershipType(s) {
	case OwnershipPersonal, OwnershipOrganization:
		return OwnershipType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOwnershipType, s)
}

// Project is a listed open-source project. It is storage-agnostic and used
// across the repository, claims and HTTP layers.
//
// OwnerUserID is set if and only if ClaimedAt is set.
type Project struct {
	ID                       string         `json:"id"`
	Name                     string         `json:"name"`
	Description              string         `json:"description,omitempty"`
	GitRepoURL               string         `json:"git_repo_url,omitempty"`
	GitHost                  forge.Host     `json:"git_host,omitempty"`
	LogoURL                  string         `json:"logo_url,omitempty"`
	Tags                     []Tag          `json:"tags"`
	IsLookingForContributors bool           `json:"is_looking_for_contributors"`
	HasBeenAcquired          bool           `json:"has_been_acquired"`
	OwnerUserID              *string        `json:"owner_user_id,omitempty"`
	OwnershipType            *OwnershipType `json:"ownership_type,omitempty"`
	ClaimedAt                *time.Time     `json:"claimed_at,omitempty"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// IsClaimed reports whether the project has an owner. Either field being set
// counts, so a row that somehow broke the pairing is never offered again.
func (p *Project) IsClaimed() bool {
	return p.OwnerUserID != nil || p.ClaimedAt != nil
}

// IsOwnedBy reports whether userID claimed the project.
func (p *Project) IsOwnedBy(userID string) bool {
	return p.OwnerUserID != nil && userID != "" && *p.OwnerUserID == userID
}

// Filter narrows a project listing.
type Filter struct {
	Host                   *forge.Host
	Tag                    *Tag
	LookingForContributors *bool
	Claimed                *bool
	Limit                  int
	Offset                 int
}
