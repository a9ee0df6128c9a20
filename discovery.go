package ucp

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime"
)

// ProtocolVersion is the UCP revision this gateway speaks. It is embedded in
// the discovery manifest and echoed on every response.
const ProtocolVersion = "2026-01-11"

// ShoppingService is the well-known service identifier for the shopping surface.
const ShoppingService = "dev.ucp.shopping"

// Capability names an independently toggleable feature surface.
type Capability string

const (
	CapabilityCheckout  Capability = "checkout"
	CapabilityDiscovery Capability = "discovery"
)

// CapabilitySet is a typed membership set replacing ad-hoc string lists.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Manifest is the discovery document served at /.well-known/ucp and via the
// structured API.
type Manifest struct {
	UCP     UCPManifest     `json:"ucp"`
	Payment PaymentManifest `json:"payment"`
}

// UCPManifest is the protocol half of the manifest.
type UCPManifest struct {
	Version      string                 `json:"version"`
	Services     map[string]Service     `json:"services"`
	Capabilities []CapabilityDescriptor `json:"capabilities"`
}

// Service describes one protocol service binding.
type Service struct {
	Version string      `json:"version"`
	Spec    string      `json:"spec"`
	REST    RESTBinding `json:"rest"`
}

// RESTBinding points agents at the REST schema and endpoint for a service.
type RESTBinding struct {
	Schema   string `json:"schema"`
	Endpoint string `json:"endpoint"`
}

// CapabilityDescriptor advertises one enabled capability.
type CapabilityDescriptor struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Spec    string `json:"spec"`
	Schema  string `json:"schema"`
}

// PaymentManifest lists the payment handlers the merchant accepts.
type PaymentManifest struct {
	Handlers []PaymentHandler `json:"handlers"`
}

// PaymentHandler describes one registered payment handler.
type PaymentHandler struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Version           string        `json:"version"`
	Spec              string        `json:"spec"`
	ConfigSchema      string        `json:"config_schema"`
	InstrumentSchemas []string      `json:"instrument_schemas"`
	Config            HandlerConfig `json:"config"`
}

// HandlerConfig holds the handler-specific configuration blob. The shape
// depends on the handler's config_schema.
type HandlerConfig struct {
	union json.RawMessage
}

// MockPaymentConfig is the config shape for the built-in mock handler.
type MockPaymentConfig struct {
	SupportedTokens []string `json:"supported_tokens"`
}

// AsMockPaymentConfig returns the union data inside the HandlerConfig as a MockPaymentConfig.
func (t HandlerConfig) AsMockPaymentConfig() (MockPaymentConfig, error) {
	var body MockPaymentConfig
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromMockPaymentConfig overwrites any union data inside the HandlerConfig with the provided MockPaymentConfig.
func (t *HandlerConfig) FromMockPaymentConfig(v MockPaymentConfig) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeMockPaymentConfig performs a merge with any union data inside the HandlerConfig, using the provided MockPaymentConfig.
func (t *HandlerConfig) MergeMockPaymentConfig(v MockPaymentConfig) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	merged, err := runtime.JSONMerge(t.union, b)
	t.union = merged
	return err
}

// MarshalJSON serializes the underlying union for HandlerConfig.
func (t HandlerConfig) MarshalJSON() ([]byte, error) {
	if t.union == nil {
		return []byte("null"), nil
	}
	return t.union.MarshalJSON()
}

// UnmarshalJSON loads union data for HandlerConfig.
func (t *HandlerConfig) UnmarshalJSON(b []byte) error {
	return t.union.UnmarshalJSON(b)
}

// BuildManifest assembles the discovery document for the given endpoint and
// enabled capability set. Discovery of the manifest itself is never gated;
// the capability array only controls what it advertises.
func BuildManifest(endpoint string, caps CapabilitySet) Manifest {
	descriptors := make([]CapabilityDescriptor, 0, 2)
	if caps.Has(CapabilityCheckout) {
		descriptors = append(descriptors, CapabilityDescriptor{
			Name:    ShoppingService + ".checkout",
			Version: ProtocolVersion,
			Spec:    "https://ucp.dev/specs/shopping/checkout",
			Schema:  "https://ucp.dev/schemas/shopping/checkout.json",
		})
	}
	if caps.Has(CapabilityDiscovery) {
		descriptors = append(descriptors, CapabilityDescriptor{
			Name:    ShoppingService + ".product_discovery",
			Version: ProtocolVersion,
			Spec:    "https://ucp.dev/specs/shopping/discovery",
			Schema:  "https://ucp.dev/schemas/shopping/discovery.json",
		})
	}

	var mockConfig HandlerConfig
	_ = mockConfig.FromMockPaymentConfig(MockPaymentConfig{
		SupportedTokens: []string{"success_token", "fail_token"},
	})

	return Manifest{
		UCP: UCPManifest{
			Version: ProtocolVersion,
			Services: map[string]Service{
				ShoppingService: {
					Version: ProtocolVersion,
					Spec:    "https://ucp.dev/specs/shopping",
					REST: RESTBinding{
						Schema:   "https://ucp.dev/services/shopping/openapi.json",
						Endpoint: endpoint,
					},
				},
			},
			Capabilities: descriptors,
		},
		Payment: PaymentManifest{
			Handlers: []PaymentHandler{
				{
					ID:           "mock_payment_handler",
					Name:         "dev.ucp.mock_payment",
					Version:      ProtocolVersion,
					Spec:         "https://ucp.dev/specs/mock",
					ConfigSchema: "https://ucp.dev/schemas/mock.json",
					InstrumentSchemas: []string{
						"https://ucp.dev/schemas/shopping/types/card_payment_instrument.json",
					},
					Config: mockConfig,
				},
			},
		},
	}
}
