package oauth

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/gitlab"

	"github.com/oss-listings/claims-backend/config"
	"github.com/oss-listings/claims-backend/internal/forge"
)

// scopes requested when linking an account. Each set includes the
// repository read access that ownership checks need.
var scopes = map[forge.Host][]string{
	forge.HostGitHub: {"read:user", "repo", "read:org"},
	forge.HostGitLab: {"read_user", "read_api"},
}

// Providers holds an OAuth client configuration per forge.
type Providers map[forge.Host]*oauth2.Config

// NewProviders configures every forge with client credentials set. Callbacks
// land on {publicBaseURL}/auth/forge/{host}/callback.
func NewProviders(cfg config.ForgeConfig, publicBaseURL string) Providers {
	p := Providers{}
	if cfg.GitHubClientID != "" {
		p[forge.HostGitHub] = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       scopes[forge.HostGitHub],
			RedirectURL:  callbackURL(publicBaseURL, forge.HostGitHub),
		}
	}
	if cfg.GitLabClientID != "" {
		p[forge.HostGitLab] = &oauth2.Config{
			ClientID:     cfg.GitLabClientID,
			ClientSecret: cfg.GitLabClientSecret,
			Endpoint:     gitlabEndpoint(cfg.GitLabAPIURL),
			Scopes:       scopes[forge.HostGitLab],
			RedirectURL:  callbackURL(publicBaseURL, forge.HostGitLab),
		}
	}
	return p
}

// gitlabEndpoint points self-managed instances at their own authorization
// server, derived from the API root (https://host/api/v4).
func gitlabEndpoint(apiURL string) oauth2.Endpoint {
	base := strings.TrimSuffix(strings.TrimRight(apiURL, "/"), "/api/v4")
	if base == "" || base == "https://gitlab.com" {
		return gitlab.Endpoint
	}
	return oauth2.Endpoint{
		AuthURL:  base + "/oauth/authorize",
		TokenURL: base + "/oauth/token",
	}
}

func callbackURL(base string, host forge.Host) string {
	return fmt.Sprintf("%s/auth/forge/%s/callback", base, host)
}
