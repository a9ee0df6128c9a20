package ucp

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionProvider is implemented by business logic that turns a validated
// checkout payload into a persisted order and returns its id.
type SessionProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// RequestVerifier decides whether a checkout request was signed by the
// agent named in the UCP-Agent header. A nil return accepts; any error
// rejects. The raw body is supplied so the verifier can bind the signature
// to the exact payload.
type RequestVerifier interface {
	Verify(ctx context.Context, signature, agentHeader string, body []byte) error
}

// ProductLister serves the bounded, recency-ordered product summary list.
type ProductLister interface {
	ListProducts(ctx context.Context, limit int) ([]Product, error)
}

// productListLimit bounds GET /ucp/v1/products.
const productListLimit = 10

// Gateway wires the UCP REST routes to a [SessionProvider] guarded by a
// [RequestVerifier].
type Gateway struct {
	sessions SessionProvider
	verifier RequestVerifier
	router   chi.Router
	cfg      config
}

// NewGateway builds the protocol boundary. Construct it once at process
// start and mount it on your server's router.
func NewGateway(sessions SessionProvider, verifier RequestVerifier, opts ...Option) *Gateway {
	if sessions == nil {
		panic("ucp: session provider is required")
	}
	if verifier == nil {
		panic("ucp: request verifier is required")
	}
	cfg := config{
		logger:       zap.NewNop(),
		endpoint:     "/ucp/v1/",
		capabilities: NewCapabilitySet(CapabilityCheckout, CapabilityDiscovery),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	g := &Gateway{
		sessions: sessions,
		verifier: verifier,
		router:   chi.NewRouter(),
		cfg:      cfg,
	}
	g.registerRoutes()
	return g
}

// ServeHTTP satisfies http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestCtx := requestContextFromRequest(r)
	ctx := contextWithRequestContext(r.Context(), requestCtx)
	g.router.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gateway) registerRoutes() {
	for _, mw := range g.cfg.middleware {
		g.router.Use((func(http.Handler) http.Handler)(mw))
	}
	g.router.Get("/.well-known/ucp", g.handleDiscovery)
	g.router.Get("/ucp/v1/discovery", g.handleDiscovery)
	g.router.Post("/ucp/v1/shipping-rates", g.handleShippingRates)
	g.router.Post("/ucp/v1/checkout-sessions", g.handleCreateSession)
	g.router.Get("/ucp/v1/products", g.handleProducts)
}

// handleDiscovery serves the manifest. It is never gated: agents must be
// able to learn which capabilities are off.
func (g *Gateway) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildManifest(g.cfg.endpoint, g.cfg.capabilities))
}

// handleShippingRates returns a static standard/express quote. The endpoint
// is read-only and unauthenticated; real rate calculation belongs to the
// commerce backend.
func (g *Gateway) handleShippingRates(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeJSONError(w, NewValidationError("unable to read request body"))
		return
	}
	req := ShippingRateRequest{}
	if len(raw) > 0 {
		if err := decodeJSON(raw, &req); err != nil {
			writeJSONError(w, NewValidationError(err.Error()))
			return
		}
		if err := req.Validate(); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	writeJSON(w, http.StatusOK, ShippingRatesResponse{
		Rates: []ShippingRate{
			{ID: "standard_shipping", Title: "Standard Shipping", Amount: 500, Currency: currency},
			{ID: "express_shipping", Title: "Express Shipping", Amount: 1500, Currency: currency},
		},
	})
}

func (g *Gateway) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if !g.cfg.capabilities.Has(CapabilityCheckout) {
		writeJSONError(w, NewGatewayUnavailableError("Checkout capability is disabled"))
		return
	}

	rc := RequestContextFromContext(r.Context())
	raw, err := readBody(r)
	if err != nil {
		writeJSONError(w, NewValidationError("unable to read request body"))
		return
	}

	if err := g.verifier.Verify(r.Context(), rc.Signature, rc.Agent, raw); err != nil {
		g.cfg.logger.Warn("checkout request rejected",
			zap.String("agent_profile", rc.ProfileURL()),
			zap.String("request_id", rc.RequestID),
			zap.Error(err),
		)
		writeJSONError(w, NewAuthError("Invalid signature"))
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(raw, &req); err != nil {
		writeJSONError(w, NewValidationError(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, err)
		return
	}

	// The idempotency-key header wins over any body field; the agent
	// profile comes exclusively from the verified header.
	if rc.IdempotencyKey != "" {
		req.IdempotencyKey = rc.IdempotencyKey
	}
	req.AgentProfile = rc.ProfileURL()

	id, err := g.sessions.CreateSession(r.Context(), req)
	if err != nil {
		g.cfg.logger.Warn("checkout session creation failed",
			zap.String("agent_profile", req.AgentProfile),
			zap.String("request_id", rc.RequestID),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}
	g.cfg.logger.Info("checkout session created",
		zap.String("checkout_id", id),
		zap.String("agent_profile", req.AgentProfile),
	)
	writeJSON(w, http.StatusCreated, CheckoutResponse{CheckoutID: id})
}

func (g *Gateway) handleProducts(w http.ResponseWriter, r *http.Request) {
	if !g.cfg.capabilities.Has(CapabilityDiscovery) {
		writeJSONError(w, NewGatewayUnavailableError("Product discovery is disabled"))
		return
	}
	products := []Product{}
	if g.cfg.products != nil {
		listed, err := g.cfg.products.ListProducts(r.Context(), productListLimit)
		if err != nil {
			g.cfg.logger.Error("product listing failed", zap.Error(err))
			writeServiceError(w, err)
			return
		}
		if listed != nil {
			products = listed
		}
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: products})
}
