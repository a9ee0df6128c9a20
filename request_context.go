package ucp

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// agentProfilePattern extracts the profile URL from a UCP-Agent header of
// the form `profile="https://agent.example/profile"`.
var agentProfilePattern = regexp.MustCompile(`profile="([^"]+)"`)

// RequestContext carries the UCP request headers relevant to verification
// and session creation.
type RequestContext struct {
	// Signature is the JWS presented by the agent.
	//
	// Example: eyJhbGciOi...
	Signature string
	// Agent is the raw UCP-Agent header.
	//
	// Example: profile="https://agent.example/profile"
	Agent string
	// IdempotencyKey dedupes repeated submissions of the same checkout.
	//
	// Example: idem_8f2c
	IdempotencyKey string
	// RequestID is a unique key per request for tracing purposes.
	RequestID string
}

// ProfileURL returns the agent profile URL embedded in the UCP-Agent
// header, or "" when the header does not match the expected format.
func (rc *RequestContext) ProfileURL() string {
	if rc == nil {
		return ""
	}
	m := agentProfilePattern.FindStringSubmatch(rc.Agent)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func requestContextFromRequest(r *http.Request) *RequestContext {
	return &RequestContext{
		Signature:      strings.TrimSpace(r.Header.Get("request-signature")),
		Agent:          strings.TrimSpace(r.Header.Get("UCP-Agent")),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("idempotency-key")),
		RequestID:      strings.TrimSpace(r.Header.Get("X-Request-ID")),
	}
}

type requestContextKey struct{}

func contextWithRequestContext(ctx context.Context, requestCtx *RequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, requestCtx)
}

// RequestContextFromContext extracts the HTTP request metadata previously stored in the context.
func RequestContextFromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return nil
	}
	if requestCtx, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return requestCtx
	}
	return nil
}
