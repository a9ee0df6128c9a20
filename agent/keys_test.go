package agent

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParsesKeyTypes(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	profile := map[string]any{
		"signing_keys": map[string]any{
			"keys": []map[string]any{
				{
					"kty": "OKP",
					"crv": "Ed25519",
					"kid": "ed-key",
					"x":   base64.RawURLEncoding.EncodeToString(edPub),
				},
				{
					"kty": "RSA",
					"kid": "rsa-key",
					"n":   base64.RawURLEncoding.EncodeToString(rsaKey.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(rsaKey.E)).Bytes()),
				},
				{
					// Unusable entries are skipped, not fatal.
					"kty": "oct",
					"kid": "symmetric",
				},
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(profile))
	}))
	defer server.Close()

	keys, err := NewResolver().Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, 2, keys.Len())

	edKey, ok := keys.byKID("ed-key")
	require.True(t, ok)
	assert.IsType(t, ed25519.PublicKey{}, edKey)

	gotRSA, ok := keys.byKID("rsa-key")
	require.True(t, ok)
	require.IsType(t, &rsa.PublicKey{}, gotRSA)
	assert.Equal(t, 0, rsaKey.N.Cmp(gotRSA.(*rsa.PublicKey).N))
}

func TestResolveAcceptsBareKeyArray(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	profile := map[string]any{
		"signing_keys": []map[string]any{
			{
				"kty": "OKP",
				"crv": "Ed25519",
				"x":   base64.RawURLEncoding.EncodeToString(pub),
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(profile))
	}))
	defer server.Close()

	keys, err := NewResolver().Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, keys.Len())
}

func TestResolveCachesUntilTTL(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"signing_keys": map[string]any{
				"keys": []map[string]any{
					{
						"kty": "OKP",
						"crv": "Ed25519",
						"x":   base64.RawURLEncoding.EncodeToString(pub),
					},
				},
			},
		}))
	}))
	defer server.Close()

	clock := time.Now()
	resolver := NewResolver()
	resolver.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		_, err := resolver.Resolve(context.Background(), server.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), fetches.Load())

	clock = clock.Add(DefaultCacheTTL + time.Second)
	_, err = resolver.Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestResolveNoSigningKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "absent field", body: `{"name":"Agent"}`},
		{name: "empty set", body: `{"signing_keys":{"keys":[]}}`},
		{name: "null field", body: `{"signing_keys":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewResolver().Resolve(context.Background(), server.URL)
			assert.ErrorIs(t, err, ErrNoSigningKeys)
		})
	}
}

func TestResolveErrorsAreNotCached(t *testing.T) {
	var fetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := NewResolver()
	for i := 0; i < 2; i++ {
		_, err := resolver.Resolve(context.Background(), server.URL)
		require.Error(t, err)
	}
	assert.Equal(t, int64(2), fetches.Load())
}
