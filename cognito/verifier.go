package cognito

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Token-use classes issued by Cognito
const (
	TokenUseID     = "id"
	TokenUseAccess = "access"
)

// KeyResolver resolves a signing key for an issuer and kid
type KeyResolver interface {
	SigningKey(ctx context.Context, issuer, kid string) (*SigningKey, error)
}

// Claims represents the claims in a Cognito JWT.
// ID tokens carry the client binding in aud; access tokens carry it in client_id.
type Claims struct {
	jwt.RegisteredClaims
	TokenUse        string   `json:"token_use"`
	ClientID        string   `json:"client_id"`
	Email           string   `json:"email"`
	CognitoUsername string   `json:"cognito:username"`
	Username        string   `json:"username"`
	Groups          []string `json:"cognito:groups"`
}

// TokenClaims are the claims of a token that passed every verification step
type TokenClaims struct {
	Issuer    string    `json:"iss"`
	Subject   string    `json:"sub"`
	Audience  []string  `json:"aud,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	TokenUse  string    `json:"token_use"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	Groups    []string  `json:"groups,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// LocalClaims returns the fixed identity used when verification is disabled
func LocalClaims(subject string) *TokenClaims {
	return &TokenClaims{
		Issuer:   "local",
		Subject:  subject,
		TokenUse: TokenUseID,
		Email:    "local@example.com",
		Username: subject,
	}
}

// IssuerURL returns the Cognito issuer for a user pool
func IssuerURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// Verifier validates Cognito bearer tokens against the issuer key set
type Verifier struct {
	keys   KeyResolver
	parser *jwt.Parser
	logger *zap.Logger
	now    func() time.Time
}

// NewVerifier creates a new Verifier
func NewVerifier(keys KeyResolver, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		keys: keys,
		// Claims are checked below in a fixed order, so the parser only verifies the signature
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithoutClaimsValidation(),
		),
		logger: logger,
		now:    time.Now,
	}
}

// Verify validates token and returns its claims.
// Each failed step yields a distinct error; claim contents are only trusted after the signature check.
func (v *Verifier) Verify(ctx context.Context, token, expectedIssuer, expectedClientID string) (*TokenClaims, error) {
	unverified, _, err := v.parser.ParseUnverified(token, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("%w: kid header not found", ErrMalformedToken)
	}

	key, err := v.keys.SigningKey(ctx, expectedIssuer, kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != key.Algorithm {
			return nil, fmt.Errorf("signing method %s does not match key algorithm %s", t.Method.Alg(), key.Algorithm)
		}
		return key.PublicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if claims.Issuer != expectedIssuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIssuerMismatch, expectedIssuer, claims.Issuer)
	}

	if claims.TokenUse != TokenUseID && claims.TokenUse != TokenUseAccess {
		return nil, fmt.Errorf("%w: %q", ErrTokenUseInvalid, claims.TokenUse)
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(v.now()) {
		return nil, fmt.Errorf("%w: expired at %s", ErrTokenExpired, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	switch claims.TokenUse {
	case TokenUseID:
		if len(claims.Audience) != 1 || claims.Audience[0] != expectedClientID {
			return nil, fmt.Errorf("%w: aud %v", ErrAudienceMismatch, []string(claims.Audience))
		}
	case TokenUseAccess:
		if claims.ClientID != expectedClientID {
			return nil, fmt.Errorf("%w: client_id %q", ErrAudienceMismatch, claims.ClientID)
		}
	}

	username := claims.CognitoUsername
	if username == "" {
		username = claims.Username
	}

	verified := &TokenClaims{
		Issuer:   claims.Issuer,
		Subject:  claims.Subject,
		Audience: []string(claims.Audience),
		ClientID: claims.ClientID,
		TokenUse: claims.TokenUse,
		Email:    claims.Email,
		Username: username,
		Groups:   claims.Groups,
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}

	v.logger.Debug("token verified",
		zap.String("sub", verified.Subject),
		zap.String("token_use", verified.TokenUse))

	return verified, nil
}
