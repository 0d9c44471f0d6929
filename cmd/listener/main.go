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

	"raydium-engine/internal/classifier"
	"raydium-engine/internal/config"
	"raydium-engine/internal/diagnostics"
	"raydium-engine/internal/listener"
	"raydium-engine/internal/logging"
	"raydium-engine/internal/observability"
	"raydium-engine/internal/oracle"
	"raydium-engine/internal/solana"
	"raydium-engine/internal/storage"
	chstore "raydium-engine/internal/storage/clickhouse"
	"raydium-engine/internal/storage/memory"
	"raydium-engine/internal/storage/migrations"
	pgstore "raydium-engine/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", ".", "Directory containing config.yaml")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides metrics.addr)")
	startSlot := flag.Int64("start-slot", 0, "First slot to process (overrides listener.start_slot)")
	flag.Parse()

	var overrides []func(*config.Config)
	if *useMemory {
		overrides = append(overrides, config.UseMemory)
	}
	if *metricsAddr != "" {
		overrides = append(overrides, func(c *config.Config) { c.Metrics.Addr = *metricsAddr })
	}
	if *startSlot > 0 {
		overrides = append(overrides, func(c *config.Config) { c.Listener.StartSlot = *startSlot })
	}

	cfg, err := config.Load(*configPath, overrides...)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("listener failed")
	}
	logger.Info("shutdown complete")
}

type stores struct {
	trades   storage.TradeStore
	pools    storage.PoolCreationStore
	errors   storage.TransactionErrorStore
	progress storage.ListenerProgressStore
	close    func()
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	metrics := observability.NewMetrics("", nil)

	st, err := openStores(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer st.close()

	rpc := solana.NewHTTPClient(cfg.RPC.HTTPEndpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithCommitment(cfg.RPC.Commitment),
		solana.WithLatencyHook(metrics.ObserveRPC),
	)

	sink := diagnostics.Multi{
		diagnostics.NewFileSink(cfg.Listener.DumpDir),
		diagnostics.NewStoreSink(st.errors),
	}

	orc := oracle.New(oracle.Options{
		URL:             cfg.Oracle.SOLPriceURL,
		RefreshInterval: cfg.Oracle.RefreshInterval,
		RequestTimeout:  cfg.Oracle.RequestTimeout,
		Metrics:         metrics,
		Logger:          logger,
	})

	cls := classifier.New(classifier.Options{
		Trades:      st.trades,
		Pools:       st.pools,
		Diagnostics: sink,
		Oracle:      orc,
		Metrics:     metrics,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	var tip *listener.TipTracker
	if cfg.Listener.FollowTip {
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, nil)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()

		tip = listener.NewTipTracker(metrics, logger)
		g.Go(func() error {
			// the block loop keeps polling without a tip
			if err := tip.Run(gctx, ws); err != nil {
				logger.WithError(err).Warn("tip tracking stopped")
			}
			return nil
		})
	}

	loop := listener.New(listener.Options{
		RPC:             rpc,
		Processor:       cls,
		Progress:        st.progress,
		Resume:          cfg.Listener.Resume,
		StartSlot:       cfg.Listener.StartSlot,
		Tip:             tip,
		PollInterval:    cfg.Listener.PollInterval,
		BlockRetryDelay: cfg.Listener.BlockRetryDelay,
		Diagnostics:     sink,
		Metrics:         metrics,
		Logger:          logger,
	})

	g.Go(func() error { return orc.Run(gctx) })
	g.Go(func() error { return loop.Run(gctx) })
	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, logger) })
	}

	return g.Wait()
}

func openStores(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *logrus.Logger) (*stores, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return &stores{
			trades:   memory.NewTradeStore(),
			pools:    memory.NewPoolCreationStore(),
			errors:   memory.NewTransactionErrorStore(),
			progress: memory.NewListenerProgressStore(),
			close:    func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	st := &stores{
		trades:   pgstore.NewTradeStore(pool),
		pools:    pgstore.NewPoolCreationStore(pool),
		errors:   pgstore.NewTransactionErrorStore(pool),
		progress: pgstore.NewListenerProgressStore(pool),
		close:    pool.Close,
	}

	if cfg.Storage.ClickhouseDSN == "" {
		return st, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	onMirrorError := func(err error) {
		metrics.DBQueryErrors.WithLabelValues("clickhouse", "insert_bulk").Inc()
		logger.WithError(err).Warn("clickhouse trade mirror write failed")
	}
	st.trades = storage.NewMirrorTradeStore(st.trades, onMirrorError, chstore.NewTradeStore(conn))
	st.close = func() {
		conn.Close()
		pool.Close()
	}
	logger.Info("mirroring trades to clickhouse")
	return st, nil
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
