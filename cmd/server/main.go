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

	"connectrpc.com/connect"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/tabsettle/internal/auth"
	"github.com/mmynk/tabsettle/internal/bus"
	"github.com/mmynk/tabsettle/internal/config"
	"github.com/mmynk/tabsettle/internal/engine"
	"github.com/mmynk/tabsettle/internal/metrics"
	"github.com/mmynk/tabsettle/internal/middleware"
	"github.com/mmynk/tabsettle/internal/money"
	"github.com/mmynk/tabsettle/internal/pending"
	"github.com/mmynk/tabsettle/internal/service"
	"github.com/mmynk/tabsettle/internal/storage"
	"github.com/mmynk/tabsettle/internal/storage/memory"
	"github.com/mmynk/tabsettle/internal/storage/sqlite"
	"github.com/mmynk/tabsettle/pkg/logging"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", os.Getenv("TABSETTLE_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	index, closeIndex, err := openIndex(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pending index: %w", err)
	}
	defer closeIndex()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	epsilon, err := cfg.Epsilon()
	if err != nil {
		return err
	}
	opts := engine.Options{
		Epsilon: epsilon,
		Assets:  money.NewRegistry(cfg.AssetDecimals()),
		Metrics: m,
	}
	if len(cfg.Members) > 0 {
		opts.Resolver = engine.NewStaticResolver(cfg.Members)
	}

	natsConn, err := openBus(cfg)
	if err != nil {
		return err
	}
	if natsConn != nil {
		opts.Notifier = bus.NewPublisher(natsConn)
	}

	eng := engine.New(store, pending.NewMatcher(index, cfg.Settlement.PendingTTL), opts)

	if natsConn != nil {
		if _, err := bus.NewConsumer(eng, 0).Subscribe(natsConn); err != nil {
			natsConn.Close()
			return err
		}
		slog.Info("Message bus connected", "url", cfg.NATS.URL)
		defer func() {
			if err := natsConn.Drain(); err != nil {
				slog.Warn("Failed to drain NATS connection", "error", err)
			}
		}()
	}

	interceptors := []connect.Interceptor{middleware.LoggingInterceptor(), middleware.MetricsInterceptor(m)}
	if cfg.Auth.JWTSecret != "" {
		interceptors = append(interceptors, middleware.RequireAuth(auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)))
	} else {
		slog.Warn("Authentication disabled: auth.jwt_secret is empty")
	}

	mux := http.NewServeMux()
	path, handler := service.NewTabService(eng).Handler(connect.WithInterceptors(interceptors...))
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweep(gctx, eng, cfg.Settlement.SweepInterval)
		return nil
	})
	return g.Wait()
}

func openStore(path string) (storage.Store, error) {
	if path == "" || path == ":memory:" {
		slog.Warn("Using in-memory storage; tabs are lost on restart")
		return memory.New(), nil
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Storage initialized", "database", path)
	return store, nil
}

func openIndex(ctx context.Context, cfg *config.Config) (pending.Index, func(), error) {
	if cfg.Redis.Addr == "" {
		slog.Info("Pending index in memory")
		return pending.NewMemoryIndex(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.Info("Pending index on Redis", "addr", cfg.Redis.Addr)
	return pending.NewRedisIndex(client, cfg.Settlement.PendingTTL), func() { client.Close() }, nil
}

func openBus(cfg *config.Config) (*nats.Conn, error) {
	if cfg.NATS.URL == "" {
		return nil, nil
	}
	return bus.Connect(bus.Config{URL: cfg.NATS.URL, Name: cfg.NATS.Name})
}

// sweep periodically drops expired pending legs until ctx is done.
func sweep(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := eng.SweepPending(ctx)
			if err != nil {
				slog.Warn("Pending sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Expired pending legs removed", "count", n)
			}
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+
			service.HeaderErrorKind+", "+service.HeaderTabID+", "+service.HeaderTabStatus)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
