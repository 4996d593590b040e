package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xrave110/dex/params"
	"github.com/xrave110/dex/pkg/api"
	"github.com/xrave110/dex/pkg/exchange"
	"github.com/xrave110/dex/pkg/storage"
	"github.com/xrave110/dex/pkg/util"
)

const demoSupply = 1_000_000

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	store, err := storage.Open(filepath.Join(cfg.Node.DataDir, "exchange"))
	if err != nil {
		sugar.Fatalw("storage_open_failed", "err", err)
	}
	defer store.Close()

	// Admin gate from config; any listed address may register assets.
	admins := make(map[common.Address]bool)
	for _, raw := range cfg.Exchange.Admins {
		if !common.IsHexAddress(raw) {
			sugar.Fatalw("invalid_admin_address", "addr", raw)
		}
		admins[common.HexToAddress(raw)] = true
	}
	gate := exchange.AdminFunc(func(caller common.Address) bool {
		return admins[caller]
	})

	ex := exchange.New(store, gate, sugar)

	// Seed the demo assets so a fresh devnet has something to trade.
	// The supply of each stub token goes to the first admin.
	if len(cfg.Exchange.Admins) > 0 {
		owner := common.HexToAddress(cfg.Exchange.Admins[0])
		for _, symbol := range cfg.Exchange.DemoAssets {
			token := exchange.NewStubToken(symbol, owner, demoSupply)
			if err := ex.RegisterAsset(owner, symbol, token); err != nil {
				sugar.Fatalw("demo_asset_failed", "symbol", symbol, "err", err)
			}
		}
	}

	server := api.NewServer(ex, sugar, cfg.API.AllowedOrigins)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.API.Addr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
	case err := <-errCh:
		sugar.Errorw("api_server_stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("shutdown_failed", "err", err)
	}
}
