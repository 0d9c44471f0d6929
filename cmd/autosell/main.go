package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"raydium-engine/internal/autosell"
	"raydium-engine/internal/config"
	"raydium-engine/internal/jupiter"
	"raydium-engine/internal/logging"
	"raydium-engine/internal/observability"
	"raydium-engine/internal/solana"
	"raydium-engine/internal/storage"
	"raydium-engine/internal/storage/memory"
	"raydium-engine/internal/storage/migrations"
	pgstore "raydium-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", ".", "Directory containing config.yaml")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides metrics.addr)")
	keysFile := flag.String("keys-file", "", "JSON file mapping wallet ids to base58 secret keys (overrides autosell.keys_file)")
	flag.Parse()

	var overrides []func(*config.Config)
	if *useMemory {
		overrides = append(overrides, config.UseMemory)
	}
	if *metricsAddr != "" {
		overrides = append(overrides, func(c *config.Config) { c.Metrics.Addr = *metricsAddr })
	}
	if *keysFile != "" {
		overrides = append(overrides, func(c *config.Config) { c.AutoSell.KeysFile = *keysFile })
	}

	cfg, err := config.Load(*configPath, overrides...)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("auto sell failed")
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	metrics := observability.NewMetrics("", nil)

	var store storage.AutoSellStore = memory.NewAutoSellStore()
	if cfg.Storage.Backend == config.BackendPostgres {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		store = pgstore.NewAutoSellStore(pool)
	} else {
		logger.Warn("using in-memory storage, entries are lost on exit")
	}

	keys := map[int64]string{}
	if cfg.AutoSell.KeysFile != "" {
		loaded, err := jupiter.LoadKeys(cfg.AutoSell.KeysFile)
		if err != nil {
			return err
		}
		keys = loaded
	} else {
		logger.Warn("no wallet keys configured, every sell will fail")
	}

	rpc := solana.NewHTTPClient(cfg.RPC.HTTPEndpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithCommitment(cfg.RPC.Commitment),
		solana.WithLatencyHook(metrics.ObserveRPC),
	)
	submitter, err := jupiter.NewKeypairSubmitter(keys, rpc)
	if err != nil {
		return fmt.Errorf("load wallet keys: %w", err)
	}
	logger.WithField("wallets", len(keys)).Info("wallet keys loaded")

	jupOpts := jupiter.Options{
		PriceURL: cfg.AutoSell.PriceURL,
		SwapURL:  cfg.AutoSell.SwapURL,
		Metrics:  metrics,
		Logger:   logger,
	}

	svc := autosell.New(autosell.Options{
		Store:        store,
		Prices:       jupiter.NewPriceClient(jupOpts),
		Gateway:      jupiter.NewSwapClient(submitter, jupOpts),
		PollInterval: cfg.AutoSell.PollInterval,
		Metrics:      metrics,
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, logger) })
	}
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", addr).Info("metrics server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
