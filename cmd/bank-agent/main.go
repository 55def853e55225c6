// cmd/bank-agent/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"credit-marketplace/internal/bankapi"
	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/database"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/marketplace"
)

const defaultPort = 8100

func main() {
	bankID := flag.String("bank-id", "", "Bank to serve (must exist in marketplace.banks)")
	port := flag.Int("port", 0, "Listen port; defaults to the port in the bank endpoint or 8100")
	flag.Parse()

	if *bankID == "" {
		fmt.Fprintln(os.Stderr, "Error: -bank-id is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	bank, ok := cfg.Marketplace.Bank(*bankID)
	if !ok {
		zapLog.Fatal("bank not configured", zap.String("bankId", *bankID))
	}

	// The provider cache is optional for an agent; run uncached when Redis is down.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	var cache *redis.Client
	rdb := database.NewRedis(cfg.Database.Redis)
	if err := rdb.Ping(ctx); err != nil {
		zapLog.Warn("Redis unavailable, provider responses will not be cached", zap.Error(err))
		rdb.Close()
	} else {
		defer rdb.Close()
		cache = rdb.Client
	}
	cancel()
	providers := marketplace.NewProviders(cfg, cache, log)

	// Build the whole set so the agent prices exactly like the in-process path.
	generators, err := marketplace.NewGenerators(cfg, marketplace.NewNarrator(cfg, log), providers, nil, log)
	if err != nil {
		zapLog.Fatal("failed to build offer generators", zap.Error(err))
	}
	var server *bankapi.Server
	for _, g := range generators {
		if g.Bank().BankID == bank.BankID {
			server = bankapi.New(g, config.GetDuration(cfg.Broadcast.Timeout), log)
		}
	}
	if server == nil {
		zapLog.Fatal("no generator for bank", zap.String("bankId", bank.BankID))
	}

	addr := fmt.Sprintf(":%d", listenPort(*port, bank.Endpoint))
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zapLog.Info("Bank agent listening",
			zap.String("bankId", bank.BankID),
			zap.String("bankName", bank.BankName),
			zap.String("addr", addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("Bank agent server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping bank agent...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping bank agent", zap.Error(err))
	}
	zapLog.Info("Bank agent stopped gracefully")
}

// listenPort prefers the flag, then the port of the bank's advertised endpoint.
func listenPort(flagPort int, endpoint string) int {
	if flagPort > 0 {
		return flagPort
	}
	if u, err := url.Parse(endpoint); err == nil && u.Port() != "" {
		if p, err := strconv.Atoi(u.Port()); err == nil {
			return p
		}
	}
	return defaultPort
}
