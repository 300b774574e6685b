package services

import (
	"errors"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/Prot0type/portfolio-website/internal/access"
	"go.uber.org/zap"
)

// Authorize evaluates policy for one operation and turns a denial into a DomainError
// that still wraps the verifier's reason. A key-set fetch failure is an upstream
// outage, reported as external rather than unauthorized.
func Authorize(policy *access.Policy, sensitivity access.Sensitivity, cred access.Credential, logger *zap.Logger) error {
	decision := policy.Authorize(sensitivity, cred)
	if decision.Allowed {
		return nil
	}

	reason := decision.Err()
	switch {
	case errors.Is(reason, cognito.ErrKeyFetch):
		logger.Error("identity provider unavailable", zap.Error(reason))
		return NewDomainError(ErrorTypeExternal, ErrIdentityProviderUnavailable.Message, reason)
	case errors.Is(reason, access.ErrMissingCredential):
		return NewDomainError(ErrorTypeUnauthorized, "authentication required", reason)
	default:
		logger.Warn("rejected credential",
			zap.Stringer("sensitivity", sensitivity),
			zap.Error(reason))
		return NewDomainError(ErrorTypeUnauthorized, "invalid bearer token", reason)
	}
}
