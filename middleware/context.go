package middleware

import (
	"context"

	"github.com/Prot0type/portfolio-website/internal/access"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// CredentialKey is the context key for the resolved request credential
	CredentialKey contextKey = "credential"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// WithCredential adds the request credential to the context
func WithCredential(ctx context.Context, cred access.Credential) context.Context {
	return context.WithValue(ctx, CredentialKey, cred)
}

// GetCredentialFromContext retrieves the request credential.
// A request that never passed through ResolveCredential is anonymous.
func GetCredentialFromContext(ctx context.Context) access.Credential {
	if val := ctx.Value(CredentialKey); val != nil {
		if cred, ok := val.(access.Credential); ok {
			return cred
		}
	}
	return access.Anonymous()
}
