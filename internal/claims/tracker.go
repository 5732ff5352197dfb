package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// Store persists the claim transition. SetOwnerIfUnset must be a single
// conditional write that reports false when the project already has an owner.
type Store interface {
	SetOwnerIfUnset(ctx context.Context, projectID, userID string, ownership domain.OwnershipType, now time.Time) (bool, error)
}

// ClaimRecord is the ownership written by a successful claim.
type ClaimRecord struct {
	ProjectID     string               `json:"project_id"`
	OwnerUserID   string               `json:"owner_user_id"`
	OwnershipType domain.OwnershipType `json:"ownership_type"`
	ClaimedAt     time.Time            `json:"claimed_at"`
}

type Tracker struct {
	store    Store
	verifier OwnershipChecker
	now      func() time.Time
}

func NewTracker(store Store, verifier OwnershipChecker, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, verifier: verifier, now: now}
}

// CanClaim reports whether u may claim p. The claimed state is checked
// first for every caller, so a claimed project never reaches the forge.
func (t *Tracker) CanClaim(ctx context.Context, p *domain.Project, u *User) (*Eligibility, error) {
	e := newEligibility(p)

	if p.IsClaimed() {
		e.Reason = ReasonAlreadyClaimed
		return e, nil
	}
	if !u.authenticated() {
		e.Reason = ReasonNotAuthenticated
		return e, nil
	}

	res, err := t.verifier.Verify(ctx, p, u)
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case OutcomeEligible:
		e.CanClaim = true
		e.Reason = ReasonEligible
		e.OwnershipType = res.OwnershipType
	case OutcomeNeedsForgeAuth:
		e.NeedsForgeAuth = true
		e.Reason = ReasonMissingScope
	default:
		e.Reason = ReasonNotOwner
	}
	return e, nil
}

// TryClaim records userID as the owner of p. The caller must already hold an
// eligible verification result. Only one of any number of concurrent calls
// for the same project succeeds; the rest get ErrAlreadyClaimed.
func (t *Tracker) TryClaim(ctx context.Context, p *domain.Project, userID string, ownership domain.OwnershipType) (*ClaimRecord, error) {
	if p.IsClaimed() {
		return nil, ErrAlreadyClaimed
	}
	if _, err := domain.ParseOwnershipType(string(ownership)); err != nil {
		return nil, err
	}
	// Nothing has been written yet, so an aborted request leaves no trace.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	ok, err := t.store.SetOwnerIfUnset(ctx, p.ID, userID, ownership, now)
	if err != nil {
		return nil, fmt.Errorf("claim project %s: %w", p.ID, err)
	}
	if !ok {
		return nil, ErrAlreadyClaimed
	}

	return &ClaimRecord{
		ProjectID:     p.ID,
		OwnerUserID:   userID,
		OwnershipType: ownership,
		ClaimedAt:     now,
	}, nil
}
