package claims

import (
	"errors"
	"fmt"

	"github.com/oss-listings/claims-backend/internal/forge"
)

var (
	ErrNotAuthenticated      = errors.New("claims: sign in required")
	ErrUnsupportedRepository = errors.New("claims: unsupported repository")
	ErrNeedsForgeAuth        = errors.New("claims: forge account with repository access required")
	ErrNotOwner              = errors.New("claims: user does not own the repository")
	ErrAlreadyClaimed        = errors.New("claims: project already claimed")
)

// FailureKind distinguishes why a forge could not answer an ownership check.
type FailureKind string

const (
	FailureNetwork      FailureKind = "network"
	FailureTimeout      FailureKind = "timeout"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureUnauthorized FailureKind = "unauthorized"
)

// VerificationError is returned when ownership could not be established
// either way. It is never treated as eligible.
type VerificationError struct {
	Kind FailureKind
	Host forge.Host
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("claims: verification failed (%s) on %s: %v", e.Kind, e.Host, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// NeedsReauth reports whether the user should reconnect their forge account.
func (e *VerificationError) NeedsReauth() bool {
	return e.Kind == FailureUnauthorized
}

// AsVerificationError unwraps err into a *VerificationError.
func AsVerificationError(err error) (*VerificationError, bool) {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
