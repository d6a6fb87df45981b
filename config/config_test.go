package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.FlowTableSize != 1024 {
		t.Fatalf("expected default flow table size 1024, got %d", cfg.Pipeline.FlowTableSize)
	}
	if cfg.Gateway.Addr != ":9400" {
		t.Fatalf("expected default gateway addr, got %q", cfg.Gateway.Addr)
	}
}

func TestValidateRejectsUndersizedFIFO(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.HeaderFIFODepth = 1
	if err := Validate(cfg); err != ErrInvalidFIFODepth {
		t.Fatalf("expected ErrInvalidFIFODepth, got %v", err)
	}
}

func TestValidateRejectsEmptyGatewayAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gateway.Addr = ""
	if err := Validate(cfg); err != ErrEmptyGatewayAddr {
		t.Fatalf("expected ErrEmptyGatewayAddr, got %v", err)
	}
}
