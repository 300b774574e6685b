package cognito

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxJWKSBytes caps the size of a JWKS response body
const maxJWKSBytes = 1 << 20

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// SigningKey is a usable public key from an issuer's key set
type SigningKey struct {
	Kid       string
	Algorithm string
	PublicKey *rsa.PublicKey
}

// KeySet is an immutable snapshot of one issuer's signing keys.
// A refresh replaces the whole snapshot; a KeySet is never mutated after construction.
type KeySet struct {
	Issuer    string
	Keys      []SigningKey
	FetchedAt time.Time
}

// Lookup returns the key with the given kid
func (s *KeySet) Lookup(kid string) (*SigningKey, bool) {
	for i := range s.Keys {
		if s.Keys[i].Kid == kid {
			return &s.Keys[i], true
		}
	}
	return nil, false
}

// KeySetCacheConfig holds configuration for KeySetCache
type KeySetCacheConfig struct {
	// HTTPTimeout bounds a single JWKS fetch
	HTTPTimeout time.Duration
	// TTL expires cached key sets; zero keeps them for the process lifetime
	TTL time.Duration
	// HTTPClient overrides the default client (tests)
	HTTPClient *http.Client
	// OnFetch is called after every fetch attempt with its outcome
	OnFetch func(issuer string, err error)
}

// KeySetCache fetches and caches issuer key sets, one per issuer.
// It is safe for concurrent use; at most one fetch per issuer is in flight.
type KeySetCache struct {
	httpClient  *http.Client
	httpTimeout time.Duration
	ttl         time.Duration
	onFetch     func(issuer string, err error)
	logger      *zap.Logger
	now         func() time.Time

	mu   sync.RWMutex
	sets map[string]*KeySet

	group singleflight.Group
}

// NewKeySetCache creates a new KeySetCache
func NewKeySetCache(config KeySetCacheConfig, logger *zap.Logger) *KeySetCache {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 5 * time.Second
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.HTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &KeySetCache{
		httpClient:  client,
		httpTimeout: config.HTTPTimeout,
		ttl:         config.TTL,
		onFetch:     config.OnFetch,
		logger:      logger,
		now:         time.Now,
		sets:        make(map[string]*KeySet),
	}
}

// GetKeySet returns the cached key set for issuer, fetching it on a cache miss
func (c *KeySetCache) GetKeySet(ctx context.Context, issuer string) (*KeySet, error) {
	set, _, err := c.getKeySet(ctx, issuer)
	return set, err
}

// SigningKey resolves kid within the issuer's key set.
// A kid missing from a previously cached set triggers exactly one refresh before ErrUnknownKey.
func (c *KeySetCache) SigningKey(ctx context.Context, issuer, kid string) (*SigningKey, error) {
	set, fresh, err := c.getKeySet(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if key, ok := set.Lookup(kid); ok {
		return key, nil
	}

	if !fresh {
		c.logger.Info("kid not in cached key set, refreshing",
			zap.String("issuer", issuer),
			zap.String("kid", kid))

		set, err = c.Refresh(ctx, issuer)
		if err != nil {
			return nil, err
		}
		if key, ok := set.Lookup(kid); ok {
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: kid %s not found for issuer %s", ErrUnknownKey, kid, issuer)
}

// Refresh fetches the issuer key set and replaces the cached snapshot.
// Concurrent refreshes for the same issuer share one fetch.
func (c *KeySetCache) Refresh(ctx context.Context, issuer string) (*KeySet, error) {
	return c.load(ctx, issuer, true)
}

// getKeySet returns the key set and whether it was fetched by this call
func (c *KeySetCache) getKeySet(ctx context.Context, issuer string) (*KeySet, bool, error) {
	if set := c.cached(issuer); set != nil {
		return set, false, nil
	}
	set, err := c.load(ctx, issuer, false)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// load runs at most one fetch per issuer and flight kind at a time.
// A non-forced load re-checks the cache first, so callers that missed while
// another fetch was landing do not fetch again.
func (c *KeySetCache) load(ctx context.Context, issuer string, force bool) (*KeySet, error) {
	flight := "load:" + issuer
	if force {
		flight = "refresh:" + issuer
	}

	ch := c.group.DoChan(flight, func() (interface{}, error) {
		if !force {
			if set := c.cached(issuer); set != nil {
				return set, nil
			}
		}

		// Detached from the first caller so its cancellation does not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.httpTimeout)
		defer cancel()

		set, err := c.fetch(fetchCtx, issuer)
		if c.onFetch != nil {
			c.onFetch(issuer, err)
		}
		if err != nil {
			c.logger.Error("jwks fetch failed",
				zap.String("issuer", issuer),
				zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		c.sets[issuer] = set
		c.mu.Unlock()

		c.logger.Debug("jwks cached",
			zap.String("issuer", issuer),
			zap.Int("keys", len(set.Keys)))
		return set, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, ctx.Err())
	}
}

func (c *KeySetCache) cached(issuer string) *KeySet {
	c.mu.RLock()
	set := c.sets[issuer]
	c.mu.RUnlock()

	if set == nil {
		return nil
	}
	if c.ttl > 0 && c.now().Sub(set.FetchedAt) >= c.ttl {
		return nil
	}
	return set
}

// fetch downloads and parses <issuer>/.well-known/jwks.json
func (c *KeySetCache) fetch(ctx context.Context, issuer string) (*KeySet, error) {
	url := strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrKeyFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrKeyFetch, resp.StatusCode)
	}

	var doc struct {
		Keys *[]JWK `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWKS: %v", ErrKeyFetch, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: JWKS has no keys member", ErrKeyFetch)
	}

	keys := make([]SigningKey, 0, len(*doc.Keys))
	for _, jwk := range *doc.Keys {
		if jwk.Kid == "" || !strings.EqualFold(jwk.Kty, "RSA") {
			c.logger.Debug("skipping unusable jwk",
				zap.String("kid", jwk.Kid),
				zap.String("kty", jwk.Kty))
			continue
		}
		publicKey, err := jwk.rsaPublicKey()
		if err != nil {
			c.logger.Warn("skipping malformed jwk",
				zap.String("issuer", issuer),
				zap.String("kid", jwk.Kid),
				zap.Error(err))
			continue
		}
		alg := jwk.Alg
		if alg == "" {
			alg = "RS256"
		}
		keys = append(keys, SigningKey{Kid: jwk.Kid, Algorithm: alg, PublicKey: publicKey})
	}

	return &KeySet{Issuer: issuer, Keys: keys, FetchedAt: c.now()}, nil
}

// rsaPublicKey converts a JWK to an RSA public key
func (j JWK) rsaPublicKey() (*rsa.PublicKey, error) {
	if j.N == "" || j.E == "" {
		return nil, errors.New("rsa jwk missing n/e")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
