package claims

import (
	"context"
	"errors"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// State is where a claim attempt stands.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateNeedsForgeAuth  State = "needs_forge_auth"
	StateEligible        State = "eligible"
	StateClaiming        State = "claiming"
	StateClaimed         State = "claimed"
	StateFailed          State = "failed"
)

// Terminal reports whether the attempt can make no further progress.
// Eligible is the only state that waits on the user.
func (s State) Terminal() bool {
	return s != StateEligible && s != StateClaiming
}

// Attempt is the result of one pass through the claim flow. Err carries the
// specific failure for every state other than Eligible and Claimed.
type Attempt struct {
	ProjectID   string
	State       State
	Reason      Reason
	Eligibility *Eligibility
	Record      *ClaimRecord
	Err         error
}

type ProjectLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

type IdentityLister interface {
	ListIdentities(ctx context.Context, userID string) ([]forge.Identity, error)
}

// Workflow sequences authentication, eligibility and the claim write.
type Workflow struct {
	projects   ProjectLoader
	identities IdentityLister
	tracker    *Tracker
}

func NewWorkflow(projects ProjectLoader, identities IdentityLister, tracker *Tracker) *Workflow {
	return &Workflow{projects: projects, identities: identities, tracker: tracker}
}

// Evaluate computes eligibility without changing anything. An empty userID is
// an anonymous caller. The returned error is reserved for lookups that
// failed before any decision, such as domain.ErrNotFound.
func (w *Workflow) Evaluate(ctx context.Context, projectID, userID string) (*Attempt, error) {
	_, attempt, err := w.evaluate(ctx, projectID, userID)
	return attempt, err
}

// Claim re-runs eligibility and, only when eligible, performs the claim.
func (w *Workflow) Claim(ctx context.Context, projectID, userID string) (*Attempt, error) {
	log := logging.New(ctx)

	p, attempt, err := w.evaluate(ctx, projectID, userID)
	if err != nil || attempt.State != StateEligible {
		return attempt, err
	}

	attempt.State = StateClaiming
	record, err := w.tracker.TryClaim(ctx, p, userID, attempt.Eligibility.OwnershipType)
	if err != nil {
		attempt.State = StateFailed
		attempt.Err = err
		if errors.Is(err, ErrAlreadyClaimed) {
			attempt.Reason = ReasonAlreadyClaimed
		}
		log.LogWarnf("claim_project", "project=%s user=%s failed: %v", projectID, userID, err)
		return attempt, nil
	}

	attempt.State = StateClaimed
	attempt.Record = record
	log.LogInfof("claim_project", "project=%s user=%s ownership=%s claimed", projectID, userID, record.OwnershipType)
	return attempt, nil
}

func (w *Workflow) evaluate(ctx context.Context, projectID, userID string) (*domain.Project, *Attempt, error) {
	p, err := w.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	var u *User
	if userID != "" {
		u = &User{ID: userID}
		// Identities are irrelevant once the project is claimed.
		if !p.IsClaimed() {
			idents, err := w.identities.ListIdentities(ctx, userID)
			if err != nil {
				return nil, nil, err
			}
			u = NewUser(userID, idents)
		}
	}

	attempt := &Attempt{ProjectID: p.ID}
	e, err := w.tracker.CanClaim(ctx, p, u)
	if err != nil {
		attempt.State = StateFailed
		attempt.Eligibility = newEligibility(p)
		attempt.Err = err
		return p, attempt, nil
	}

	attempt.Eligibility = e
	attempt.Reason = e.Reason
	switch e.Reason {
	case ReasonEligible:
		attempt.State = StateEligible
	case ReasonNotAuthenticated:
		attempt.State = StateUnauthenticated
		attempt.Err = ErrNotAuthenticated
	case ReasonMissingScope:
		attempt.State = StateNeedsForgeAuth
		attempt.Err = ErrNeedsForgeAuth
	case ReasonAlreadyClaimed:
		attempt.State = StateFailed
		attempt.Err = ErrAlreadyClaimed
	default:
		attempt.State = StateFailed
		attempt.Err = ErrNotOwner
	}
	return p, attempt, nil
}
