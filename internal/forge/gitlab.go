package forge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// gitlabOwnerAccessLevel is GitLab's access level for the Owner role.
const gitlabOwnerAccessLevel = 50

// GitLabClient implements API against the GitLab REST API (v4).
type GitLabClient struct {
	rest *restClient
	// webBase is prefixed to relative avatar paths.
	webBase string
}

func NewGitLabClient(cfg ClientConfig) *GitLabClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gitlab.com/api/v4"
	}
	webBase := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/api/v4")
	return &GitLabClient{rest: newRESTClient(HostGitLab, cfg, nil), webBase: webBase}
}

type glUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type glProject struct {
	Path        string    `json:"path"`
	Description *string   `json:"description"`
	WebURL      string    `json:"web_url"`
	AvatarURL   *string   `json:"avatar_url"`
	StarCount   int       `json:"star_count"`
	ForksCount  int       `json:"forks_count"`
	CreatedAt   time.Time `json:"created_at"`
	Owner       *glUser   `json:"owner"`
	Namespace   struct {
		ID        int64  `json:"id"`
		Kind      string `json:"kind"`
		FullPath  string `json:"full_path"`
		AvatarURL string `json:"avatar_url"`
	} `json:"namespace"`
}

type glMember struct {
	ID          int64  `json:"id"`
	AccessLevel int    `json:"access_level"`
	State       string `json:"state"`
}

func (c *GitLabClient) GetRepository(ctx context.Context, token string, ref RepoRef) (*Repository, error) {
	var p glProject
	if err := c.rest.getJSON(ctx, token, "/projects/"+url.PathEscape(ref.FullName()), &p); err != nil {
		return nil, err
	}

	repo := &Repository{
		Host:      HostGitLab,
		Owner:     p.Namespace.FullPath,
		Name:      p.Path,
		IsOrg:     p.Namespace.Kind == "group",
		WebURL:    p.WebURL,
		AvatarURL: c.absoluteAvatar(p.Namespace.AvatarURL),
		Stars:     p.StarCount,
		Forks:     p.ForksCount,
		CreatedAt: p.CreatedAt,
	}
	if p.Description != nil {
		repo.Description = *p.Description
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		repo.AvatarURL = c.absoluteAvatar(*p.AvatarURL)
	}

	if !repo.IsOrg {
		if p.Owner != nil {
			repo.OwnerID = strconv.FormatInt(p.Owner.ID, 10)
		} else {
			id, err := c.userIDByUsername(ctx, token, p.Namespace.FullPath)
			if err != nil {
				return nil, err
			}
			repo.OwnerID = id
		}
	}
	return repo, nil
}

// GetOrgRole reads userID's membership in group, including inherited
// memberships from parent groups.
func (c *GitLabClient) GetOrgRole(ctx context.Context, token, group, userID string) (Role, error) {
	var m glMember
	path := "/groups/" + url.PathEscape(group) + "/members/all/" + url.PathEscape(userID)
	if err := c.rest.getJSON(ctx, token, path, &m); err != nil {
		if IsNotFound(err) {
			return RoleNone, nil
		}
		return RoleNone, err
	}

	if m.State != "" && m.State != "active" {
		return RoleNone, nil
	}
	if m.AccessLevel >= gitlabOwnerAccessLevel {
		return RoleOwner, nil
	}
	return RoleMember, nil
}

func (c *GitLabClient) CurrentUser(ctx context.Context, token string) (*Account, error) {
	var u glUser
	if err := c.rest.getJSON(ctx, token, "/user", &u); err != nil {
		return nil, err
	}
	return &Account{
		ID:        strconv.FormatInt(u.ID, 10),
		Login:     u.Username,
		Name:      u.Name,
		AvatarURL: c.absoluteAvatar(u.AvatarURL),
	}, nil
}

func (c *GitLabClient) userIDByUsername(ctx context.Context, token, username string) (string, error) {
	var users []glUser
	if err := c.rest.getJSON(ctx, token, "/users?username="+url.QueryEscape(username), &users); err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", fmt.Errorf("gitlab: no user for namespace %q", username)
	}
	return strconv.FormatInt(users[0].ID, 10), nil
}

func (c *GitLabClient) absoluteAvatar(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.webBase + path
}
