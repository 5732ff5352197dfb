package forge

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidRepoURL = errors.New("forge: invalid repository url")

// RepoRef identifies a repository on a forge. For GitLab, Owner is the full
// namespace path and may contain subgroups ("group/sub").
type RepoRef struct {
	Host  Host
	Owner string
	Name  string
}

func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL splits a repository URL into owner and name. Both https and
// scp-style ("git@github.com:owner/repo.git") forms are accepted; the URL's
// domain must belong to host.
func ParseRepoURL(host Host, raw string) (RepoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoRef{}, fmt.Errorf("%w: empty", ErrInvalidRepoURL)
	}
	if host.Domain() == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrUnsupportedHost, host)
	}

	var hostname, path string
	if strings.HasPrefix(raw, "git@") {
		rest := strings.TrimPrefix(raw, "git@")
		i := strings.Index(rest, ":")
		if i < 0 {
			return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
		}
		hostname, path = rest[:i], rest[i+1:]
	} else {
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return RepoRef{}, fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return RepoRef{}, fmt.Errorf("%w: scheme %q", ErrInvalidRepoURL, u.Scheme)
		}
		hostname, path = u.Hostname(), u.Path
	}

	hostname = strings.TrimPrefix(strings.ToLower(hostname), "www.")
	if hostname != host.Domain() {
		return RepoRef{}, fmt.Errorf("%w: %q is not a %s repository", ErrInvalidRepoURL, raw, host)
	}

	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	var owner, name string
	switch host {
	case HostGitHub:
		if len(segs) < 2 {
			return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
		}
		owner, name = segs[0], segs[1]
	case HostGitLab:
		// "/-/" starts a sub-page (tree, issues, merge_requests)
		for i, s := range segs {
			if s == "-" {
				segs = segs[:i]
				break
			}
		}
		if len(segs) < 2 {
			return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
		}
		owner, name = strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
	}

	name = strings.TrimSuffix(name, ".git")
	if owner == "" || name == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	return RepoRef{Host: host, Owner: owner, Name: name}, nil
}
