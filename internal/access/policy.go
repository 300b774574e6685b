package access

import (
	"errors"

	"github.com/Prot0type/portfolio-website/cognito"
	"go.uber.org/zap"
)

// ErrMissingCredential is the denial reason when a protected route is called without a token
var ErrMissingCredential = errors.New("missing credential")

// Sensitivity classifies what a route requires from the caller
type Sensitivity int

const (
	// Public routes are always allowed
	Public Sensitivity = iota
	// Authenticated routes require a verified credential
	Authenticated
	// Admin routes require a verified credential; any verified subject is an admin
	Admin
)

func (s Sensitivity) String() string {
	switch s {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// Credential is the outcome of bearer-token resolution for one request.
// The zero value is an anonymous caller.
type Credential struct {
	Claims *cognito.TokenClaims
	Err    error
}

// Anonymous returns the credential of a caller that sent no token
func Anonymous() Credential {
	return Credential{}
}

// Verified returns the credential of a caller whose token passed verification
func Verified(claims *cognito.TokenClaims) Credential {
	return Credential{Claims: claims}
}

// Rejected returns the credential of a caller whose token failed verification
func Rejected(err error) Credential {
	return Credential{Err: err}
}

// Present reports whether the caller sent a token at all
func (c Credential) Present() bool {
	return c.Claims != nil || c.Err != nil
}

// Authenticated reports whether the caller holds verified claims
func (c Credential) Authenticated() bool {
	return c.Claims != nil && c.Err == nil
}

// Subject returns the verified subject, or "" for anonymous and rejected callers
func (c Credential) Subject() string {
	if !c.Authenticated() {
		return ""
	}
	return c.Claims.Subject
}

// Decision represents the result of an authorization check
type Decision struct {
	Allowed bool
	Reason  error
}

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision carrying reason
func Deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision and the denial reason otherwise
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == nil {
		return ErrMissingCredential
	}
	return d.Reason
}

// Policy evaluates route sensitivity against a request credential
type Policy struct {
	logger *zap.Logger
}

// NewPolicy creates a new Policy
func NewPolicy(logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{logger: logger}
}

// Authorize returns the decision for a route of the given sensitivity.
// A rejected credential is denied with the verifier's own error, never with ErrMissingCredential.
func (p *Policy) Authorize(sensitivity Sensitivity, cred Credential) Decision {
	if sensitivity == Public {
		return Allow()
	}

	if cred.Err != nil {
		p.logger.Debug("access denied",
			zap.Stringer("sensitivity", sensitivity),
			zap.Error(cred.Err))
		return Deny(cred.Err)
	}

	if cred.Claims == nil {
		p.logger.Debug("access denied",
			zap.Stringer("sensitivity", sensitivity),
			zap.String("reason", "missing credential"))
		return Deny(ErrMissingCredential)
	}

	return Allow()
}
