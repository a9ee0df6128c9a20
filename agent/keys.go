// Package agent verifies that checkout requests really come from the agent
// named in the UCP-Agent header. An agent publishes its signing keys as a
// JWK set in the `signing_keys` field of its profile document; the resolver
// fetches and caches those keys, and the authenticator checks the request
// signature against them.
package agent

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// DefaultCacheTTL is how long resolved key sets stay usable before a
// refresh is forced.
const DefaultCacheTTL = time.Hour

// ErrNoSigningKeys reports a profile document whose signing_keys field is
// absent, empty, or contains no key the verifier can use. The caller treats
// it as "verification must fail", not as a hard fault.
var ErrNoSigningKeys = errors.New("agent: profile has no usable signing keys")

// PublicKey is one verification key from an agent's JWK set.
type PublicKey struct {
	KID string
	Key crypto.PublicKey
}

// KeySet holds the verification keys published by a single agent profile.
type KeySet struct {
	Keys []PublicKey
}

// Len returns the number of usable keys.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.Keys)
}

func (ks *KeySet) byKID(kid string) (crypto.PublicKey, bool) {
	if ks == nil || kid == "" {
		return nil, false
	}
	for _, k := range ks.Keys {
		if k.KID == kid {
			return k.Key, true
		}
	}
	return nil, false
}

type cacheEntry struct {
	keys    *KeySet
	expires time.Time
}

// Resolver fetches agent signing keys from profile URLs and caches them.
// The cache is last-writer-wins: concurrent refreshes of the same profile
// simply overwrite each other, which is safe because a refresh yields the
// same or newer key set.
type Resolver struct {
	// Client issues the profile GET. Defaults to a 5s-timeout client; a
	// slow agent key endpoint must degrade to rejection, not hang the
	// request pipeline.
	Client *http.Client
	// TTL bounds cache entries. Defaults to [DefaultCacheTTL].
	TTL time.Duration

	now func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewResolver builds a resolver with the default client and TTL.
func NewResolver() *Resolver {
	return &Resolver{
		Client: &http.Client{Timeout: 5 * time.Second},
		TTL:    DefaultCacheTTL,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve returns the signing keys published at profileURL, serving from
// cache when a fresh entry exists. Network failures and malformed profile
// documents surface as errors; only non-empty key sets are cached.
func (r *Resolver) Resolve(ctx context.Context, profileURL string) (*KeySet, error) {
	key := cacheKey(profileURL)

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && r.clock().Before(entry.expires) {
		return entry.keys, nil
	}

	keys, err := r.fetch(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.cache == nil {
		r.cache = make(map[string]cacheEntry)
	}
	r.cache[key] = cacheEntry{keys: keys, expires: r.clock().Add(r.ttl())}
	r.mu.Unlock()

	return keys, nil
}

func (r *Resolver) fetch(ctx context.Context, profileURL string) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("agent: build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: fetch profile %s: %w", profileURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent: profile %s returned %s", profileURL, resp.Status)
	}

	var doc struct {
		SigningKeys json.RawMessage `json:"signing_keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("agent: decode profile %s: %w", profileURL, err)
	}
	return parseKeySet(doc.SigningKeys)
}

func (r *Resolver) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Resolver) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultCacheTTL
}

func cacheKey(profileURL string) string {
	sum := sha256.Sum256([]byte(profileURL))
	return hex.EncodeToString(sum[:])
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Crv string `json:"crv"`
	N   string `json:"n"`
	E   string `json:"e"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parseKeySet accepts signing_keys either as a JWK set object
// ({"keys": [...]}) or as a bare JWK array. Unusable keys are skipped.
func parseKeySet(raw json.RawMessage) (*KeySet, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoSigningKeys
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		if err := json.Unmarshal(raw, &set.Keys); err != nil {
			return nil, fmt.Errorf("agent: malformed signing_keys: %w", err)
		}
	}
	if len(set.Keys) == 0 {
		return nil, ErrNoSigningKeys
	}

	out := &KeySet{}
	for _, k := range set.Keys {
		pub, err := jwkToPublicKey(k)
		if err != nil {
			continue
		}
		out.Keys = append(out.Keys, PublicKey{KID: k.Kid, Key: pub})
	}
	if len(out.Keys) == 0 {
		return nil, ErrNoSigningKeys
	}
	return out, nil
}

func jwkToPublicKey(k jwk) (crypto.PublicKey, error) {
	switch k.Kty {
	case "RSA":
		return rsaPublicKey(k.N, k.E)
	case "EC":
		return ecPublicKey(k.Crv, k.X, k.Y)
	case "OKP":
		if k.Crv != "Ed25519" {
			return nil, fmt.Errorf("agent: unsupported OKP curve %q", k.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			return nil, err
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("agent: invalid Ed25519 key length")
		}
		return ed25519.PublicKey(xb), nil
	default:
		return nil, fmt.Errorf("agent: unsupported key type %q", k.Kty)
	}
}

func rsaPublicKey(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nb)
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("agent: invalid RSA exponent")
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

func ecPublicKey(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("agent: unsupported EC curve %q", crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}, nil
}
