package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_PassesValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadFromFile_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("port = %d, want default %d", cfg.Port, DefaultPort)
	}
}

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discover.yaml")
	content := "port: 9999\nbroadcast: 192.168.1.255\nweight: 2.5\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Port)
	}
	if cfg.Broadcast != "192.168.1.255" {
		t.Errorf("broadcast = %q, want 192.168.1.255", cfg.Broadcast)
	}
	if !cfg.WeightSet || cfg.Weight != 2.5 {
		t.Errorf("weight = %v (set=%v), want 2.5 (set=true)", cfg.Weight, cfg.WeightSet)
	}
}

func TestValidate_RejectsBadInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckInterval = 5000
	cfg.NodeTimeout = 2000
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error when check_interval > node_timeout")
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for port 0")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LANPEER_PORT", "4242")
	t.Setenv("LANPEER_ADDRESS", "192.168.0.1")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Port != 4242 {
		t.Errorf("port = %d, want 4242", cfg.Port)
	}
	if cfg.Address != "192.168.0.1" {
		t.Errorf("address = %q, want 192.168.0.1", cfg.Address)
	}
}
