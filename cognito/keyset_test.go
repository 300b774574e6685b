package cognito

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testKey struct {
	kid     string
	private *rsa.PrivateKey
}

func generateTestKey(t *testing.T, kid string) testKey {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return testKey{kid: kid, private: privateKey}
}

func (k testKey) jwk() JWK {
	return JWK{
		Kid: k.kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(k.private.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.private.E)).Bytes()),
	}
}

// mockJWKSServer serves a swappable key set at /.well-known/jwks.json and counts fetches
type mockJWKSServer struct {
	*httptest.Server

	mu    sync.Mutex
	keys  []JWK
	delay time.Duration
	hits  atomic.Int32
}

func newMockJWKSServer(t *testing.T, keys ...testKey) *mockJWKSServer {
	t.Helper()
	s := &mockJWKSServer{}
	s.setKeys(keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		s.hits.Add(1)

		s.mu.Lock()
		jwks := JWKS{Keys: append([]JWK(nil), s.keys...)}
		delay := s.delay
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *mockJWKSServer) setKeys(keys ...testKey) {
	jwks := make([]JWK, 0, len(keys))
	for _, k := range keys {
		jwks = append(jwks, k.jwk())
	}
	s.mu.Lock()
	s.keys = jwks
	s.mu.Unlock()
}

func (s *mockJWKSServer) setDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *mockJWKSServer) fetches() int {
	return int(s.hits.Load())
}

func newTestCache() *KeySetCache {
	return NewKeySetCache(KeySetCacheConfig{HTTPTimeout: 2 * time.Second}, zap.NewNop())
}

func TestKeySetCache_GetKeySet(t *testing.T) {
	key := generateTestKey(t, "key-1")
	server := newMockJWKSServer(t, key)
	cache := newTestCache()
	ctx := context.Background()

	t.Run("first call fetches", func(t *testing.T) {
		set, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)
		require.Len(t, set.Keys, 1)
		assert.Equal(t, "key-1", set.Keys[0].Kid)
		assert.Equal(t, "RS256", set.Keys[0].Algorithm)
		assert.Equal(t, server.URL, set.Issuer)
		assert.Equal(t, 0, key.private.PublicKey.N.Cmp(set.Keys[0].PublicKey.N))
		assert.Equal(t, 1, server.fetches())
	})

	t.Run("second call is served from cache", func(t *testing.T) {
		first, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)
		second, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, server.fetches())
	})

	t.Run("issuers are cached independently", func(t *testing.T) {
		other := newMockJWKSServer(t, generateTestKey(t, "other-key"))
		set, err := cache.GetKeySet(ctx, other.URL)
		require.NoError(t, err)
		assert.Equal(t, "other-key", set.Keys[0].Kid)
		assert.Equal(t, 1, other.fetches())
		assert.Equal(t, 1, server.fetches())
	})
}

func TestKeySetCache_SigningKey(t *testing.T) {
	ctx := context.Background()

	t.Run("known kid needs no refresh", func(t *testing.T) {
		key := generateTestKey(t, "key-1")
		server := newMockJWKSServer(t, key)
		cache := newTestCache()

		_, err := cache.SigningKey(ctx, server.URL, "key-1")
		require.NoError(t, err)
		_, err = cache.SigningKey(ctx, server.URL, "key-1")
		require.NoError(t, err)
		assert.Equal(t, 1, server.fetches())
	})

	t.Run("rotated kid triggers exactly one refresh", func(t *testing.T) {
		oldKey := generateTestKey(t, "old")
		newKey := generateTestKey(t, "new")
		server := newMockJWKSServer(t, oldKey)
		cache := newTestCache()

		_, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)
		require.Equal(t, 1, server.fetches())

		server.setKeys(oldKey, newKey)

		found, err := cache.SigningKey(ctx, server.URL, "new")
		require.NoError(t, err)
		assert.Equal(t, "new", found.Kid)
		assert.Equal(t, 2, server.fetches())

		// the refreshed snapshot replaced the old one
		set, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)
		assert.Len(t, set.Keys, 2)
		assert.Equal(t, 2, server.fetches())
	})

	t.Run("kid absent after refresh is unknown", func(t *testing.T) {
		server := newMockJWKSServer(t, generateTestKey(t, "key-1"))
		cache := newTestCache()

		_, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)

		_, err = cache.SigningKey(ctx, server.URL, "missing")
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, 2, server.fetches())
	})

	t.Run("cold cache miss does not fetch twice", func(t *testing.T) {
		server := newMockJWKSServer(t, generateTestKey(t, "key-1"))
		cache := newTestCache()

		_, err := cache.SigningKey(ctx, server.URL, "missing")
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, 1, server.fetches())
	})

	t.Run("removed kid is rejected after refresh", func(t *testing.T) {
		keyA := generateTestKey(t, "a")
		keyB := generateTestKey(t, "b")
		server := newMockJWKSServer(t, keyA)
		cache := newTestCache()

		_, err := cache.GetKeySet(ctx, server.URL)
		require.NoError(t, err)

		server.setKeys(keyB)
		_, err = cache.SigningKey(ctx, server.URL, "b")
		require.NoError(t, err)

		// a is gone from the replaced snapshot; one more refresh still does not have it
		_, err = cache.SigningKey(ctx, server.URL, "a")
		assert.ErrorIs(t, err, ErrUnknownKey)
		assert.Equal(t, 3, server.fetches())
	})
}

func TestKeySetCache_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
		{
			name: "missing keys member",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"other": []}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var fetchErr error
			var calls int
			cache := NewKeySetCache(KeySetCacheConfig{
				OnFetch: func(issuer string, err error) {
					calls++
					fetchErr = err
				},
			}, zap.NewNop())

			_, err := cache.GetKeySet(context.Background(), server.URL)
			assert.ErrorIs(t, err, ErrKeyFetch)
			assert.False(t, IsTrustFailure(err))
			assert.Equal(t, 1, calls)
			assert.ErrorIs(t, fetchErr, ErrKeyFetch)
		})
	}

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		cache := newTestCache()
		_, err := cache.GetKeySet(context.Background(), url)
		assert.ErrorIs(t, err, ErrKeyFetch)
	})

	t.Run("failed fetch is not cached", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		key := generateTestKey(t, "key-1")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{key.jwk()}})
		}))
		defer server.Close()

		cache := newTestCache()
		_, err := cache.GetKeySet(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrKeyFetch)

		fail.Store(false)
		set, err := cache.GetKeySet(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Len(t, set.Keys, 1)
	})
}

func TestKeySetCache_Timeout(t *testing.T) {
	server := newMockJWKSServer(t, generateTestKey(t, "key-1"))
	server.setDelay(300 * time.Millisecond)

	cache := NewKeySetCache(KeySetCacheConfig{HTTPTimeout: 50 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err := cache.GetKeySet(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrKeyFetch)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestKeySetCache_CallerCancellation(t *testing.T) {
	server := newMockJWKSServer(t, generateTestKey(t, "key-1"))
	server.setDelay(100 * time.Millisecond)
	cache := newTestCache()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cache.GetKeySet(ctx, server.URL)
	assert.ErrorIs(t, err, ErrKeyFetch)

	// the shared fetch keeps running and lands in the cache
	assert.Eventually(t, func() bool {
		return cache.cached(server.URL) != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, server.fetches())
}

func TestKeySetCache_ConcurrentMiss(t *testing.T) {
	server := newMockJWKSServer(t, generateTestKey(t, "key-1"))
	server.setDelay(50 * time.Millisecond)
	cache := newTestCache()

	const workers = 20
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := cache.SigningKey(context.Background(), server.URL, "key-1")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, server.fetches())
}

func TestKeySetCache_TTL(t *testing.T) {
	server := newMockJWKSServer(t, generateTestKey(t, "key-1"))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewKeySetCache(KeySetCacheConfig{TTL: time.Minute}, zap.NewNop())
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := cache.GetKeySet(ctx, server.URL)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = cache.GetKeySet(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, server.fetches())

	now = now.Add(time.Minute)
	_, err = cache.GetKeySet(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, server.fetches())
}

func TestKeySetCache_SkipsUnusableKeys(t *testing.T) {
	good := generateTestKey(t, "good")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{
			{Kid: "ec", Kty: "EC"},
			{Kty: "RSA", N: good.jwk().N, E: good.jwk().E},
			{Kid: "broken", Kty: "RSA", N: "!!!", E: "AQAB"},
			{Kid: "no-exponent", Kty: "RSA", N: good.jwk().N},
			good.jwk(),
		}})
	}))
	defer server.Close()

	set, err := newTestCache().GetKeySet(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "good", set.Keys[0].Kid)
}
