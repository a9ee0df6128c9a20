// Package ucp implements the merchant side of the Universal Commerce
// Protocol (UCP): discovery metadata plus a signed checkout surface that
// lets autonomous agents place orders against an existing commerce backend.
//
// # Gateway
//
// Use [NewGateway] with your [SessionProvider] and [RequestVerifier]
// implementations to expose the UCP REST contract over `net/http`. The
// gateway serves the discovery manifest (also at /.well-known/ucp), a
// static shipping-rate quote, the signed checkout-sessions endpoint, and a
// bounded product listing for agent discovery.
//
// # Trust model
//
// Agents identify themselves with a `UCP-Agent: profile="<url>"` header and
// sign each checkout request with a JWS carried in `request-signature`. The
// agent subpackage resolves the profile's published JWK set, verifies the
// token against it, and binds the token to a digest of the exact request
// body so a signature cannot be replayed with a different payload.
//
// # Risk controls
//
// Session creation is idempotent under the `idempotency-key` header,
// re-validates stock per line item, and enforces a configurable spend cap
// before any order is persisted.
package ucp
