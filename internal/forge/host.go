// Package forge talks to the code-hosting platforms a project can live on.
package forge

import (
	"errors"
	"fmt"
	"strings"
)

// Host is the closed set of supported forges.
type Host string

const (
	HostGitHub Host = "github"
	HostGitLab Host = "gitlab"
)

var ErrUnsupportedHost = errors.New("forge: unsupported host")

// Hosts lists every supported forge.
func Hosts() []Host {
	return []Host{HostGitHub, HostGitLab}
}

// ParseHost validates a loosely typed host string at the system boundary.
func ParseHost(s string) (Host, error) {
	switch Host(strings.ToLower(strings.TrimSpace(s))) {
	case HostGitHub:
		return HostGitHub, nil
	case HostGitLab:
		return HostGitLab, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedHost, s)
}

// Domain is the public web domain repositories of this host live under.
func (h Host) Domain() string {
	switch h {
	case HostGitHub:
		return "github.com"
	case HostGitLab:
		return "gitlab.com"
	}
	return ""
}

func (h Host) String() string { return string(h) }
