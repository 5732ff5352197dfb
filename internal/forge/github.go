package forge

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// GitHubClient implements API against the GitHub REST API.
type GitHubClient struct {
	rest *restClient
}

func NewGitHubClient(cfg ClientConfig) *GitHubClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	return &GitHubClient{rest: newRESTClient(HostGitHub, cfg, map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	})}
}

type ghAccount struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	AvatarURL string `json:"avatar_url"`
}

type ghRepository struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"html_url"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	CreatedAt       time.Time `json:"created_at"`
	Owner           ghAccount `json:"owner"`
}

type ghMembership struct {
	State string    `json:"state"`
	Role  string    `json:"role"`
	User  ghAccount `json:"user"`
}

func (c *GitHubClient) GetRepository(ctx context.Context, token string, ref RepoRef) (*Repository, error) {
	var r ghRepository
	path := "/repos/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Name)
	if err := c.rest.getJSON(ctx, token, path, &r); err != nil {
		return nil, err
	}

	repo := &Repository{
		Host:      HostGitHub,
		Owner:     r.Owner.Login,
		Name:      r.Name,
		OwnerID:   strconv.FormatInt(r.Owner.ID, 10),
		IsOrg:     r.Owner.Type == "Organization",
		WebURL:    r.HTMLURL,
		AvatarURL: r.Owner.AvatarURL,
		Stars:     r.StargazersCount,
		Forks:     r.ForksCount,
		CreatedAt: r.CreatedAt,
	}
	if r.Description != nil {
		repo.Description = *r.Description
	}
	return repo, nil
}

// GetOrgRole reads the token owner's membership in org. GitHub's "admin"
// organization role is the owner role. Pending invitations and memberships
// belonging to a different account than userID count as no role.
func (c *GitHubClient) GetOrgRole(ctx context.Context, token, org, userID string) (Role, error) {
	var m ghMembership
	if err := c.rest.getJSON(ctx, token, "/user/memberships/orgs/"+url.PathEscape(org), &m); err != nil {
		if IsNotFound(err) {
			return RoleNone, nil
		}
		return RoleNone, err
	}

	if strconv.FormatInt(m.User.ID, 10) != userID || m.State != "active" {
		return RoleNone, nil
	}
	if m.Role == "admin" {
		return RoleOwner, nil
	}
	return RoleMember, nil
}

func (c *GitHubClient) CurrentUser(ctx context.Context, token string) (*Account, error) {
	var u ghAccount
	if err := c.rest.getJSON(ctx, token, "/user", &u); err != nil {
		return nil, err
	}
	return &Account{
		ID:        strconv.FormatInt(u.ID, 10),
		Login:     u.Login,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}, nil
}
