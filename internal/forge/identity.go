package forge

import (
	"errors"
	"strings"
	"time"
)

var ErrIdentityNotLinked = errors.New("forge: no linked identity")

// Identity is a user's linked account on a forge, with the OAuth grant that
// was issued when the account was connected.
type Identity struct {
	Host         Host       `json:"host"`
	ForgeUserID  string     `json:"forge_user_id"`
	Login        string     `json:"login"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	Scopes       []string   `json:"scopes"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// requiredScopes lists, per host, the scopes of which at least one grants
// repository read access.
var requiredScopes = map[Host][]string{
	HostGitHub: {"repo"},
	HostGitLab: {"read_api", "api"},
}

// HasRequiredScope reports whether the grant includes repository read access.
func (i *Identity) HasRequiredScope() bool {
	if i == nil {
		return false
	}
	for _, want := range requiredScopes[i.Host] {
		for _, got := range i.Scopes {
			if got == want {
				return true
			}
		}
	}
	return false
}

func (i *Identity) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// ParseScopes splits the scope string returned with an access token. GitHub
// separates scopes with commas, GitLab with spaces.
func ParseScopes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.TrimSpace(f))
	}
	return out
}
