// cmd/marketplace-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"credit-marketplace/internal/broadcast"
	"credit-marketplace/internal/common/camunda"
	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/database"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/marketplace"
	"credit-marketplace/internal/notify"
	"credit-marketplace/internal/store"

	gco "credit-marketplace/internal/workers/bank/generate-credit-offer"
	bci "credit-marketplace/internal/workers/credit/broadcast-credit-intent"
	eco "credit-marketplace/internal/workers/credit/evaluate-credit-offers"
	vci "credit-marketplace/internal/workers/credit/validate-credit-intent"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
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

	zapLog.Info("Starting marketplace manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Database.Postgres.MigrationsPath != "" {
		if err := pg.Migrate(); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		rdb = database.NewRedis(cfg.Database.Redis)
		if err := rdb.Ping(ctx); err != nil {
			rdb.Close()
			return err
		}
		return nil
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Elasticsearch, only for registry discovery ---
	var es *elasticsearch.Client
	if cfg.Marketplace.DiscoverySource == config.DiscoveryElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if created, err := esClient.EnsureBankIndex(ctx, cfg.Database.Elasticsearch.BankIndex); err != nil {
			zapLog.Fatal("bank index check failed", zap.Error(err))
		} else if created {
			zapLog.Warn("Bank index was missing and has been created empty; run registry-updater index",
				zap.String("index", cfg.Database.Elasticsearch.BankIndex))
		}
		es = esClient.Client
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Domain services ---
	intents := store.NewIntentCache(rdb.Client, config.GetDuration(cfg.Database.Redis.IntentTTL))
	audit := store.NewOfferStore(pg.DB, log)

	narrator := marketplace.NewNarrator(cfg, log)
	generators, err := marketplace.NewGenerators(cfg, narrator, marketplace.NewProviders(cfg, rdb.Client, log), obs, log)
	if err != nil {
		zapLog.Fatal("failed to build offer generators", zap.Error(err))
	}

	discovery, err := marketplace.NewDiscovery(cfg, es)
	if err != nil {
		zapLog.Fatal("failed to build bank discovery", zap.Error(err))
	}
	bankTimeout := config.GetDuration(cfg.Broadcast.Timeout)
	coordinator := broadcast.NewCoordinator(discovery, broadcast.RoutedBankClient{
		Remote: broadcast.NewHTTPBankClient(bankTimeout),
		Local:  broadcast.NewLocalBankClient(generators...),
	}, cfg.Broadcast, log, broadcast.WithObservability(obs))

	evaluator, err := marketplace.NewEvaluator(cfg, narrator, intents, log)
	if err != nil {
		zapLog.Fatal("failed to build evaluator", zap.Error(err))
	}

	notifier, err := notify.NewFromConfig(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("failed to build notifier", zap.Error(err))
	}

	zapLog.Info("Marketplace services initialized",
		zap.Int("banks", len(generators)),
		zap.String("discovery", cfg.Marketplace.DiscoverySource),
		zap.String("scoringMode", string(evaluator.Mode())),
		zap.Bool("notifications", notifier.Enabled()),
	)

	// --- Workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker

	{
		wcfg := config.GetWorkerConfig(cfg, vci.TaskType)
		handler := vci.NewHandler(vci.LoadConfig(wcfg), intents, log).WithRecorder(obs)
		workers = append(workers, camunda.StartWorker(client, vci.TaskType, wcfg, handler.Handle, log))
	}
	{
		wcfg := config.GetWorkerConfig(cfg, bci.TaskType)
		handler := bci.NewHandler(bci.LoadConfig(wcfg), coordinator, intents, audit, log).WithRecorder(obs)
		workers = append(workers, camunda.StartWorker(client, bci.TaskType, wcfg, handler.Handle, log))
	}
	{
		wcfg := config.GetWorkerConfig(cfg, gco.TaskType)
		offerGenerators := make([]gco.OfferGenerator, 0, len(generators))
		for _, g := range generators {
			offerGenerators = append(offerGenerators, g)
		}
		handler := gco.NewHandler(gco.LoadConfig(wcfg), offerGenerators, intents, log).WithRecorder(obs)
		workers = append(workers, camunda.StartWorker(client, gco.TaskType, wcfg, handler.Handle, log))
	}
	{
		wcfg := config.GetWorkerConfig(cfg, eco.TaskType)
		deps := eco.Dependencies{Intents: intents, Audit: audit}
		if notifier.Enabled() {
			deps.Notifier = notifier
		}
		handler := eco.NewHandler(eco.LoadConfig(wcfg), evaluator, deps, log).WithRecorder(obs)
		workers = append(workers, camunda.StartWorker(client, eco.TaskType, wcfg, handler.Handle, log))
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "zeebe unavailable")
			return
		}
		if err := pg.Ping(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		if err := rdb.Ping(checkCtx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	camunda.StopWorkers(workers, log)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Marketplace manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
