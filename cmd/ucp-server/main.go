// ucp-server exposes a UCP merchant gateway over HTTP: agent discovery,
// shipping rates, signed checkout session creation, and a product listing.
//
// Configuration is environment-driven; see the settings package for the
// full list of knobs. With no DATABASE_URL the server runs against an
// in-memory order store, which is enough for local agent integration work.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	ucp "github.com/lilly-ofek/WooUCP"
	"github.com/lilly-ofek/WooUCP/agent"
	"github.com/lilly-ofek/WooUCP/checkout"
	"github.com/lilly-ofek/WooUCP/httpmw"
	"github.com/lilly-ofek/WooUCP/settings"
	"github.com/lilly-ofek/WooUCP/store"
)

func main() {
	if err := settings.Load(); err != nil {
		panic(err)
	}

	logger := buildLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orders, cleanup, err := buildOrderStore(ctx, logger)
	if err != nil {
		logger.Fatal("order store init failed", zap.Error(err))
	}
	defer cleanup()

	catalog, err := buildCatalog(logger)
	if err != nil {
		logger.Fatal("catalog init failed", zap.Error(err))
	}

	manager := checkout.NewManager(orders, catalog, checkout.Config{
		PaymentMethod: settings.PaymentMethod(),
		DefaultStatus: store.OrderStatus(settings.DefaultOrderStatus()),
		MaxOrderTotal: settings.MaxOrderTotal(),
	}, logger.Named("checkout"))
	manager.SetCouponResolver(catalog)

	if endpoint := settings.WebhookEndpoint(); endpoint != "" {
		manager.SetNotifier(&ucp.WebhookNotifier{
			Endpoint: endpoint,
			Secret:   []byte(settings.WebhookSecret()),
		})
	}

	authenticator := &agent.Authenticator{
		Keys:            agent.NewResolver(),
		Allowlist:       settings.AgentAllowlist(),
		DevMode:         settings.DevMode(),
		AllowUndigested: !settings.RequireRequestDigest(),
		Logger:          logger.Named("agent"),
	}
	if authenticator.DevMode {
		logger.Warn("dev mode enabled, the bypass signature will be accepted")
	}

	gateway := ucp.NewGateway(manager, authenticator,
		ucp.WithLogger(logger.Named("gateway")),
		ucp.WithEndpoint(settings.PublicEndpoint()),
		ucp.WithCapabilities(settings.Capabilities()),
		ucp.WithProductLister(catalog),
	)

	limiter := httpmw.NewRateLimiter(settings.RateLimitRPS(), settings.RateLimitBurst())

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(httpmw.RequestID)
	router.Use(httpmw.Logging(logger.Named("http")))
	router.Use(middleware.Recoverer)
	router.Use(limiter.Middleware)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Mount("/", gateway)

	server := &http.Server{
		Addr:              settings.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func buildLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if settings.DebugMode() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// buildOrderStore prefers Postgres when DATABASE_URL is set and falls back
// to the in-memory store otherwise.
func buildOrderStore(ctx context.Context, logger *zap.Logger) (store.OrderStore, func(), error) {
	dsn := settings.DatabaseURL()
	if dsn == "" {
		logger.Info("no DATABASE_URL set, using in-memory order store")
		return store.NewMemoryOrderStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres order store")
	return store.NewPostgresOrderStore(pool), pool.Close, nil
}

func buildCatalog(logger *zap.Logger) (*checkout.MemoryCatalog, error) {
	path := settings.CatalogFile()
	if path == "" {
		logger.Warn("no UCP_CATALOG_FILE set, starting with an empty catalog")
		return checkout.NewMemoryCatalog(), nil
	}
	catalog, err := checkout.LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded", zap.String("path", path))
	return catalog, nil
}
