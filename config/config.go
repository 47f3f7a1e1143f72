package config

import (
	"os"
	"path/filepath"
	"strings"

	"creditchain/crypto"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk daemon configuration.
type Config struct {
	RPCAddress        string   `toml:"RPCAddress"`
	DataDir           string   `toml:"DataDir"`
	NetworkName       string   `toml:"NetworkName"`
	Environment       string   `toml:"Environment"`
	AuthorityKeystore string   `toml:"AuthorityKeystore"`
	AssetSeed         string   `toml:"AssetSeed"`
	StaticWhitelist   []string `toml:"StaticWhitelist"`

	Log    Log    `toml:"Log"`
	Pauses Pauses `toml:"Pauses"`
}

// Log controls rotating file output in addition to stdout JSON logs.
type Log struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Pauses holds the per-module governance pause switches.
type Pauses struct {
	Collateral bool `toml:"Collateral"`
	CreditLine bool `toml:"CreditLine"`
	BNPL       bool `toml:"BNPL"`
	Score      bool `toml:"Score"`
	Yield      bool `toml:"Yield"`
	Card       bool `toml:"Card"`
	NFT        bool `toml:"NFT"`
	Whitelist  bool `toml:"Whitelist"`
}

// IsPaused implements the pause view consumed by every native engine.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "collateral":
		return p.Collateral
	case "creditline":
		return p.CreditLine
	case "bnpl":
		return p.BNPL
	case "score":
		return p.Score
	case "yieldtrack":
		return p.Yield
	case "card":
		return p.Card
	case "nft":
		return p.NFT
	case "whitelist":
		return p.Whitelist
	default:
		return false
	}
}

// Load reads the configuration from path, creating a default file and an
// authority keystore on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(path, cfg)

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(path string, cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./creditchain-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "creditchain-local"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if strings.TrimSpace(cfg.AssetSeed) == "" {
		cfg.AssetSeed = "usdc"
	}
	if cfg.StaticWhitelist == nil {
		cfg.StaticWhitelist = []string{}
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if strings.TrimSpace(cfg.AuthorityKeystore) == "" {
		cfg.AuthorityKeystore = defaultKeystorePath(path)
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	if _, err := os.Stat(cfg.AuthorityKeystore); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(cfg.AuthorityKeystore, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// createDefault writes a default configuration file and authority keystore.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(path, cfg)

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(cfg.AuthorityKeystore, key, ""); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "authority.keystore")
}
