package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/Prot0type/portfolio-website/internal/access"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	Verify(ctx context.Context, token, expectedIssuer, expectedClientID string) (*cognito.TokenClaims, error)
}

// AuthConfig holds the expected token binding
type AuthConfig struct {
	// Disabled skips verification; every request carries the local identity
	Disabled     bool
	LocalSubject string
	Issuer       string
	ClientID     string
}

// AuthMiddleware resolves the bearer token of each request into an access.Credential.
// It never rejects a request itself: the service operation decides whether the credential suffices.
type AuthMiddleware struct {
	verifier TokenVerifier
	config   AuthConfig
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, config AuthConfig, logger *zap.Logger) *AuthMiddleware {
	if config.LocalSubject == "" {
		config.LocalSubject = "local-admin"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Disabled {
		logger.Warn("token verification is DISABLED; every request is treated as the local identity",
			zap.String("subject", config.LocalSubject))
	}
	return &AuthMiddleware{
		verifier: verifier,
		config:   config,
		logger:   logger,
	}
}

// ResolveCredential stores the request's credential in the context
func (m *AuthMiddleware) ResolveCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cred := m.resolve(ctx, r)
		next.ServeHTTP(w, r.WithContext(WithCredential(ctx, cred)))
	})
}

func (m *AuthMiddleware) resolve(ctx context.Context, r *http.Request) access.Credential {
	requestID := GetRequestIDFromContext(ctx)

	if m.config.Disabled {
		m.logger.Debug("using local identity",
			zap.String("request_id", requestID),
			zap.String("subject", m.config.LocalSubject))
		return access.Verified(cognito.LocalClaims(m.config.LocalSubject))
	}

	token, present, err := extractBearerToken(r)
	if !present {
		return access.Anonymous()
	}
	if err != nil {
		m.logger.Warn("malformed authorization header",
			zap.String("request_id", requestID),
			zap.Error(err))
		return access.Rejected(err)
	}

	claims, err := m.verifier.Verify(ctx, token, m.config.Issuer, m.config.ClientID)
	if err != nil {
		if cognito.IsTrustFailure(err) {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
		} else {
			m.logger.Error("token verification unavailable",
				zap.String("request_id", requestID),
				zap.Error(err))
		}
		return access.Rejected(err)
	}

	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Subject),
		zap.String("token_use", claims.TokenUse))
	return access.Verified(claims)
}

// extractBearerToken reads the Authorization header. present is false when the
// header is absent; a header that is not "Bearer <token>" is malformed.
func extractBearerToken(r *http.Request) (token string, present bool, err error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", false, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true, fmt.Errorf("%w: authorization header is not a bearer token", cognito.ErrMalformedToken)
	}

	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", true, fmt.Errorf("%w: empty bearer token", cognito.ErrMalformedToken)
	}
	return token, true, nil
}
