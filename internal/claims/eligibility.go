package claims

import (
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// Reason explains an eligibility decision.
type Reason string

const (
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonMissingScope     Reason = "missing_scope"
	ReasonNotOwner         Reason = "not_owner"
	ReasonAlreadyClaimed   Reason = "already_claimed"
	ReasonEligible         Reason = "eligible"
)

// Eligibility is computed per project and user on demand and never stored.
type Eligibility struct {
	ProjectID      string               `json:"project_id"`
	ProjectName    string               `json:"project_name"`
	GitRepoURL     string               `json:"git_repo_url,omitempty"`
	Host           forge.Host           `json:"git_host,omitempty"`
	CanClaim       bool                 `json:"can_claim"`
	NeedsForgeAuth bool                 `json:"needs_forge_auth"`
	Reason         Reason               `json:"reason"`
	OwnershipType  domain.OwnershipType `json:"ownership_type,omitempty"`
}

func newEligibility(p *domain.Project) *Eligibility {
	return &Eligibility{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		GitRepoURL:  p.GitRepoURL,
		Host:        p.GitHost,
	}
}

// User is the signed-in caller together with the forge accounts they linked.
type User struct {
	ID         string
	Identities map[forge.Host]*forge.Identity
}

// NewUser indexes identities by host. A user has at most one per host.
func NewUser(id string, identities []forge.Identity) *User {
	u := &User{ID: id, Identities: make(map[forge.Host]*forge.Identity, len(identities))}
	for i := range identities {
		ident := identities[i]
		u.Identities[ident.Host] = &ident
	}
	return u
}

func (u *User) Identity(host forge.Host) *forge.Identity {
	if u == nil {
		return nil
	}
	return u.Identities[host]
}

func (u *User) authenticated() bool {
	return u != nil && u.ID != ""
}
