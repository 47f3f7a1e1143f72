package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lukechampine.com/blake3"

	"creditchain/config"
	"creditchain/core"
	"creditchain/core/state"
	"creditchain/core/types"
	"creditchain/crypto"
	"creditchain/observability/logging"
	"creditchain/rpc"
	"creditchain/storage"
)

const authorityPassEnv = "CREDITCHAIN_AUTHORITY_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	var logger *slog.Logger
	if cfg.Log.File != "" {
		logger = logging.SetupRotating("creditd", cfg.Environment, logging.RotationConfig{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
	} else {
		logger = logging.Setup("creditd", cfg.Environment)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	authorityKey, err := crypto.LoadFromKeystore(cfg.AuthorityKeystore, os.Getenv(authorityPassEnv))
	if err != nil {
		panic(fmt.Sprintf("Failed to load authority key: %v", err))
	}
	authority := authorityKey.PubKey().Identity()

	staticWhitelist, err := decodeWhitelist(cfg.StaticWhitelist)
	if err != nil {
		panic(fmt.Sprintf("Failed to decode static whitelist: %v", err))
	}

	asset := deriveIdentity("asset", cfg.AssetSeed)
	platform := deriveIdentity("platform_treasury", cfg.NetworkName)

	manager := state.NewManager(db)
	processor := core.NewProcessor(manager, core.ProcessorConfig{
		Authority:       authority,
		Platform:        platform,
		Asset:           asset,
		StaticWhitelist: staticWhitelist,
		Pauses:          cfg.Pauses,
	}, logger)

	server := rpc.NewServer(processor, manager, asset, logger)
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rpc listening",
			"address", cfg.RPCAddress,
			"network", cfg.NetworkName,
			"authority", crypto.MustNewAddress(crypto.UserPrefix, authority[:]).String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// deriveIdentity maps a human-readable seed onto a fixed ledger identity so
// the asset and treasury accounts stay stable across restarts.
func deriveIdentity(kind, seed string) types.Identity {
	h := blake3.New(32, nil)
	h.Write([]byte(kind))
	h.Write([]byte(seed))
	var id types.Identity
	copy(id[:], h.Sum(nil))
	return id
}

func decodeWhitelist(entries []string) ([]types.Identity, error) {
	ids := make([]types.Identity, 0, len(entries))
	for _, entry := range entries {
		addr, err := crypto.DecodeAddress(entry)
		if err != nil {
			return nil, err
		}
		var id types.Identity
		copy(id[:], addr.Bytes())
		ids = append(ids, id)
	}
	return ids, nil
}
