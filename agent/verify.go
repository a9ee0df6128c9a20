package agent

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DigestClaim is the JWT claim binding a signature token to the request
// body: the base64url-encoded SHA-256 of the canonical JSON payload.
const DigestClaim = "request_digest"

// DevBypassSignature is accepted in place of a real JWS when development
// mode is on. It must never be honored in production.
const DevBypassSignature = "test"

var (
	profilePattern = regexp.MustCompile(`profile="([^"]+)"`)
	allowedAlgs    = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}

	errUnknownKID = errors.New("agent: no key matches token kid")
)

// ProfileFromHeader extracts the agent profile URL from a UCP-Agent header
// of the form `profile="<url>"`. It returns "" when the header does not
// match.
func ProfileFromHeader(header string) string {
	m := profilePattern.FindStringSubmatch(header)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// KeyResolver supplies the signing keys published by an agent profile.
type KeyResolver interface {
	Resolve(ctx context.Context, profileURL string) (*KeySet, error)
}

// Authenticator decides whether a request was signed by the agent named in
// its UCP-Agent header. It is a pure decision function over its inputs plus
// one key-resolution call; it never mutates order state.
type Authenticator struct {
	// Keys resolves profile URLs to signing key sets.
	Keys KeyResolver
	// Allowlist restricts which agent profiles may transact. Empty means
	// any agent with a valid signature is admitted.
	Allowlist []string
	// DevMode accepts the literal signature "test" without verification.
	// Off by default; a non-production escape hatch only.
	DevMode bool
	// AllowUndigested admits tokens that carry no request_digest claim.
	// By default the claim is required so a signature cannot be replayed
	// against a different payload.
	AllowUndigested bool
	// Logger records rejection reasons. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Verify runs the acceptance state machine over the presented credentials
// and raw request body. A nil return accepts; any error rejects. Failures
// while resolving keys degrade to rejection, never to a fault.
func (a *Authenticator) Verify(ctx context.Context, signature, agentHeader string, body []byte) error {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if a.DevMode && signature == DevBypassSignature {
		logger.Warn("accepting development bypass signature")
		return nil
	}

	if signature == "" || agentHeader == "" {
		return errors.New("agent: missing request-signature or UCP-Agent header")
	}

	profile := ProfileFromHeader(agentHeader)
	if profile == "" {
		return errors.New("agent: malformed UCP-Agent header")
	}

	if len(a.Allowlist) > 0 && !contains(a.Allowlist, profile) {
		logger.Warn("agent profile blocked by allow-list", zap.String("profile_url", profile))
		return fmt.Errorf("agent: profile %s blocked by allow-list", profile)
	}

	if a.Keys == nil {
		return errors.New("agent: no key resolver configured")
	}
	keys, err := a.Keys.Resolve(ctx, profile)
	if err != nil {
		logger.Warn("agent key resolution failed", zap.String("profile_url", profile), zap.Error(err))
		return fmt.Errorf("agent: resolve signing keys: %w", err)
	}
	if keys.Len() == 0 {
		return ErrNoSigningKeys
	}

	claims, err := verifyToken(signature, keys)
	if err != nil {
		logger.Warn("agent signature rejected", zap.String("profile_url", profile), zap.Error(err))
		return fmt.Errorf("agent: verify signature: %w", err)
	}

	return a.checkDigest(claims, body)
}

// verifyToken parses the JWS against the resolved key set. When the token
// names a kid that the set contains, only that key is tried; otherwise
// every key in the set is a candidate.
func verifyToken(tokenString string, keys *KeySet) (jwt.MapClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(allowedAlgs))

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if key, ok := keys.byKID(kid); ok {
			return key, nil
		}
		return nil, errUnknownKID
	})
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, errUnknownKID) {
		return nil, err
	}

	var lastErr error
	for _, k := range keys.Keys {
		claims = jwt.MapClaims{}
		key := k.Key
		_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("agent: no verification keys")
	}
	return nil, lastErr
}

func (a *Authenticator) checkDigest(claims jwt.MapClaims, body []byte) error {
	claimed, _ := claims[DigestClaim].(string)
	if claimed == "" {
		if a.AllowUndigested {
			return nil
		}
		return errors.New("agent: token carries no request_digest claim")
	}
	want, err := BodyDigest(body)
	if err != nil {
		return fmt.Errorf("agent: digest request body: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(claimed), []byte(want)) != 1 {
		return errors.New("agent: request_digest does not match request body")
	}
	return nil
}

// BodyDigest computes the base64url SHA-256 of the canonical JSON form of
// raw. Signing agents place this value in the request_digest claim.
func BodyDigest(raw []byte) (string, error) {
	canonical, err := canonicalJSONBody(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// canonicalJSONBody normalizes arbitrary JSON into canonical form so the
// digest is stable across whitespace and key-order differences.
func canonicalJSONBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("agent: multiple JSON documents in body")
	}
	return canonicaljson.Marshal(payload)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
