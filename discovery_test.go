package ucp

import (
	"encoding/json"
	"testing"
)

func TestHandlerConfigUnion(t *testing.T) {
	var cfg HandlerConfig
	if err := cfg.FromMockPaymentConfig(MockPaymentConfig{SupportedTokens: []string{"success_token"}}); err != nil {
		t.Fatalf("FromMockPaymentConfig failed: %v", err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"supported_tokens":["success_token"]}` {
		t.Fatalf("unexpected union payload %s", raw)
	}

	var decoded HandlerConfig
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	got, err := decoded.AsMockPaymentConfig()
	if err != nil {
		t.Fatalf("AsMockPaymentConfig failed: %v", err)
	}
	if len(got.SupportedTokens) != 1 || got.SupportedTokens[0] != "success_token" {
		t.Fatalf("unexpected tokens %v", got.SupportedTokens)
	}

	if err := decoded.MergeMockPaymentConfig(MockPaymentConfig{SupportedTokens: []string{"success_token", "fail_token"}}); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	merged, err := decoded.AsMockPaymentConfig()
	if err != nil {
		t.Fatalf("AsMockPaymentConfig after merge failed: %v", err)
	}
	if len(merged.SupportedTokens) != 2 {
		t.Fatalf("expected merged tokens, got %v", merged.SupportedTokens)
	}
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet(CapabilityCheckout)
	if !set.Has(CapabilityCheckout) {
		t.Fatal("expected checkout to be enabled")
	}
	if set.Has(CapabilityDiscovery) {
		t.Fatal("expected discovery to be disabled")
	}
	if NewCapabilitySet().Has(CapabilityCheckout) {
		t.Fatal("expected the empty set to have nothing")
	}
}
