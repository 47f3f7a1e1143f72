package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":8080" {
		t.Fatalf("rpc address %q, want :8080", cfg.RPCAddress)
	}
	if cfg.AssetSeed != "usdc" {
		t.Fatalf("asset seed %q, want usdc", cfg.AssetSeed)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if _, err := os.Stat(cfg.AuthorityKeystore); err != nil {
		t.Fatalf("authority keystore not written: %v", err)
	}
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("RPCAddress = \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9090" {
		t.Fatalf("rpc address %q, want :9090", cfg.RPCAddress)
	}
	if cfg.NetworkName != "creditchain-local" {
		t.Fatalf("network %q, want creditchain-local", cfg.NetworkName)
	}
	if cfg.Log.MaxSizeMB != 100 {
		t.Fatalf("log max size %d, want 100", cfg.Log.MaxSizeMB)
	}
}

func TestLoadRejectsBadWhitelistEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("StaticWhitelist = [\"not-an-address\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected invalid whitelist address rejection")
	}
}

func TestPausesMapModules(t *testing.T) {
	p := Pauses{BNPL: true, Collateral: true}
	if !p.IsPaused("bnpl") || !p.IsPaused("collateral") {
		t.Fatal("expected paused modules to report paused")
	}
	if p.IsPaused("score") || p.IsPaused("unknown") {
		t.Fatal("expected unpaused modules to report running")
	}
}
