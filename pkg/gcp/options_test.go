package gcp

import (
	"testing"

	"github.com/angelmondragon/agristore-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	if opts := ClientOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected ADC fallback, got %d options", len(opts))
	}
	if opts := ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}); len(opts) != 1 {
		t.Fatalf("expected json credentials option, got %d", len(opts))
	}
	if opts := ClientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/sa.json"}); len(opts) != 1 {
		t.Fatalf("expected file credentials option, got %d", len(opts))
	}
}
