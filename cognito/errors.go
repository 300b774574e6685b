package cognito

import "errors"

var (
	// ErrMalformedToken is returned when the token structure cannot be parsed
	ErrMalformedToken = errors.New("malformed token")

	// ErrUnknownKey is returned when the token's kid is absent from the issuer key set, even after a refresh
	ErrUnknownKey = errors.New("unknown signing key")

	// ErrSignatureInvalid is returned when the signature does not verify against the resolved key
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrIssuerMismatch is returned when the token issuer is not the expected issuer
	ErrIssuerMismatch = errors.New("token issuer invalid")

	// ErrTokenUseInvalid is returned when token_use is neither "id" nor "access"
	ErrTokenUseInvalid = errors.New("token use invalid")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrAudienceMismatch is returned when the client binding (aud or client_id) does not match
	ErrAudienceMismatch = errors.New("token audience invalid")

	// ErrKeyFetch is returned when the JWKS endpoint is unreachable or returns malformed data
	ErrKeyFetch = errors.New("failed to fetch JWKS")
)

var trustFailures = []error{
	ErrMalformedToken,
	ErrUnknownKey,
	ErrSignatureInvalid,
	ErrIssuerMismatch,
	ErrTokenUseInvalid,
	ErrTokenExpired,
	ErrAudienceMismatch,
}

// IsTrustFailure reports whether err means the presented token is not trustworthy.
// Transport failures such as ErrKeyFetch are not trust failures.
func IsTrustFailure(err error) bool {
	if err == nil || errors.Is(err, ErrKeyFetch) {
		return false
	}
	for _, target := range trustFailures {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
