package claims

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// Outcome is the answer of an ownership check that reached a decision.
type Outcome string

const (
	OutcomeEligible       Outcome = "eligible"
	OutcomeNotOwner       Outcome = "not_owner"
	OutcomeNeedsForgeAuth Outcome = "needs_forge_auth"
)

// VerificationResult is what Verify decided. OwnershipType and Repository
// are set only when the outcome is eligible.
type VerificationResult struct {
	Outcome       Outcome
	OwnershipType domain.OwnershipType
	Repository    *forge.Repository
}

// OwnershipChecker is the read-only ownership check used by the tracker.
type OwnershipChecker interface {
	Verify(ctx context.Context, p *domain.Project, u *User) (*VerificationResult, error)
}

// IdentityRefresher renews an expired forge grant and stores the new one.
type IdentityRefresher interface {
	Refresh(ctx context.Context, userID string, ident forge.Identity) (*forge.Identity, error)
}

type VerifierConfig struct {
	// Timeout bounds every forge call attempt.
	Timeout time.Duration
	// RetryBackoff is the pause before the single retry of a transient failure.
	RetryBackoff time.Duration
	// Refresher is optional. Without it an expired grant always needs a relink.
	Refresher IdentityRefresher
	Now       func() time.Time
}

// Verifier decides whether a user owns a project's repository by asking the
// forge with the user's own access token.
type Verifier struct {
	clients   forge.Clients
	timeout   time.Duration
	backoff   time.Duration
	refresher IdentityRefresher
	now       func() time.Time
}

func NewVerifier(clients forge.Clients, cfg VerifierConfig) *Verifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{
		clients:   clients,
		timeout:   cfg.Timeout,
		backoff:   cfg.RetryBackoff,
		refresher: cfg.Refresher,
		now:       cfg.Now,
	}
}

// Verify never mutates p or u. An expired grant with a refresh token is
// renewed first; the only write is the renewed grant. Forge failures come
// back as *VerificationError; a missing or insufficient forge grant is the
// OutcomeNeedsForgeAuth result, not an error.
func (v *Verifier) Verify(ctx context.Context, p *domain.Project, u *User) (*VerificationResult, error) {
	ref, api, err := v.resolve(p)
	if err != nil {
		return nil, err
	}

	ident := u.Identity(ref.Host)
	if ident.HasRequiredScope() && ident.Expired(v.now()) {
		ident = v.refresh(ctx, u.ID, ident)
	}
	if !ident.HasRequiredScope() || ident.Expired(v.now()) {
		return &VerificationResult{Outcome: OutcomeNeedsForgeAuth}, nil
	}

	var repo *forge.Repository
	err = v.call(ctx, func(ctx context.Context) error {
		var err error
		repo, err = api.GetRepository(ctx, ident.AccessToken, ref)
		return err
	})
	if forge.IsNotFound(err) {
		// The user's own token cannot see the repository.
		return &VerificationResult{Outcome: OutcomeNotOwner}, nil
	}
	if err != nil {
		return nil, classify(ref.Host, err)
	}

	if !repo.IsOrg {
		if repo.OwnerID != "" && repo.OwnerID == ident.ForgeUserID {
			return &VerificationResult{Outcome: OutcomeEligible, OwnershipType: domain.OwnershipPersonal, Repository: repo}, nil
		}
		return &VerificationResult{Outcome: OutcomeNotOwner}, nil
	}

	var role forge.Role
	err = v.call(ctx, func(ctx context.Context) error {
		var err error
		role, err = api.GetOrgRole(ctx, ident.AccessToken, repo.Owner, ident.ForgeUserID)
		return err
	})
	if forge.IsNotFound(err) {
		role, err = forge.RoleNone, nil
	}
	if err != nil {
		return nil, classify(ref.Host, err)
	}

	if role == forge.RoleOwner {
		return &VerificationResult{Outcome: OutcomeEligible, OwnershipType: domain.OwnershipOrganization, Repository: repo}, nil
	}
	return &VerificationResult{Outcome: OutcomeNotOwner}, nil
}

// refresh returns the renewed identity, or ident unchanged when it cannot be
// renewed.
func (v *Verifier) refresh(ctx context.Context, userID string, ident *forge.Identity) *forge.Identity {
	if v.refresher == nil || ident.RefreshToken == "" {
		return ident
	}
	rctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	fresh, err := v.refresher.Refresh(rctx, userID, *ident)
	if err != nil || fresh == nil {
		logging.New(ctx).LogWarnf("refresh_forge_token", "user=%s host=%s: %v", userID, ident.Host, err)
		return ident
	}
	return fresh
}

func (v *Verifier) resolve(p *domain.Project) (forge.RepoRef, forge.API, error) {
	if p.GitRepoURL == "" || p.GitHost == "" {
		return forge.RepoRef{}, nil, ErrUnsupportedRepository
	}
	host, err := forge.ParseHost(string(p.GitHost))
	if err != nil {
		return forge.RepoRef{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedRepository, err)
	}
	ref, err := forge.ParseRepoURL(host, p.GitRepoURL)
	if err != nil {
		return forge.RepoRef{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedRepository, err)
	}
	api, err := v.clients.For(host)
	if err != nil {
		return forge.RepoRef{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedRepository, err)
	}
	return ref, api, nil
}

// call runs fn with a per-attempt timeout, retrying once after a transient
// failure.
func (v *Verifier) call(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			logging.New(ctx).LogWarnf("verify_ownership", "retrying forge call after: %v", err)
			timer := time.NewTimer(v.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil || !transient(err) {
			return err
		}
	}
	return err
}

// transient reports network failures and 5xx responses. Timeouts are
// surfaced rather than retried.
func transient(err error) bool {
	if forge.IsServerError(err) {
		return true
	}
	var apiErr *forge.APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return !isTimeout(err) && !errors.Is(err, context.Canceled)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classify(host forge.Host, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	kind := FailureNetwork
	switch {
	case isTimeout(err):
		kind = FailureTimeout
	case forge.IsRateLimited(err):
		kind = FailureRateLimited
	case forge.IsUnauthorized(err):
		kind = FailureUnauthorized
	}
	return &VerificationError{Kind: kind, Host: host, Err: err}
}
