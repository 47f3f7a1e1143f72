package config

import (
	"fmt"
	"strings"

	"creditchain/crypto"
)

// Validate rejects configurations the daemon cannot safely start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if strings.TrimSpace(cfg.AssetSeed) == "" {
		return fmt.Errorf("config: AssetSeed required")
	}
	for _, entry := range cfg.StaticWhitelist {
		if _, err := crypto.DecodeAddress(entry); err != nil {
			return fmt.Errorf("config: invalid whitelist address %q: %w", entry, err)
		}
	}
	return nil
}
