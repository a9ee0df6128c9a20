package ucp

import (
	"net/http"

	"go.uber.org/zap"
)

type config struct {
	logger       *zap.Logger
	endpoint     string
	capabilities CapabilitySet
	products     ProductLister
	middleware   []Middleware
}

// Middleware wraps an http.Handler the way chi middleware does.
type Middleware func(http.Handler) http.Handler

// Option customizes the gateway behavior.
type Option func(*config)

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithEndpoint sets the public REST endpoint advertised in the discovery
// manifest.
func WithEndpoint(endpoint string) Option {
	return func(cfg *config) {
		cfg.endpoint = endpoint
	}
}

// WithCapabilities replaces the enabled capability set. The default enables
// both checkout and discovery.
func WithCapabilities(caps CapabilitySet) Option {
	return func(cfg *config) {
		cfg.capabilities = caps
	}
}

// WithProductLister enables the GET /ucp/v1/products listing.
func WithProductLister(products ProductLister) Option {
	return func(cfg *config) {
		cfg.products = products
	}
}

// WithMiddleware appends custom middleware in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(cfg *config) {
		for _, m := range mw {
			if m == nil {
				continue
			}
			cfg.middleware = append(cfg.middleware, m)
		}
	}
}
