// Command storefront runs the bakery storefront HTTP service: cached
// catalog reads from the backend API, cart persistence, homepage
// section resolution, and the WhatsApp checkout handoff.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/cart"
	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
	"github.com/m4rrec0s/lna-doceria-storefront/display"
	"github.com/m4rrec0s/lna-doceria-storefront/pkg/logger"
	"github.com/m4rrec0s/lna-doceria-storefront/resilience"
	"github.com/m4rrec0s/lna-doceria-storefront/server"
	"github.com/m4rrec0s/lna-doceria-storefront/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()

	opts := []core.Option{}
	if *configPath != "" {
		opts = append(opts, core.WithConfigFile(*configPath))
	}
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	log := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tel core.Telemetry = &core.NoOpTelemetry{}
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.Initialize(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("telemetry initialization failed: %w", err)
		}
		tel = provider
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Error("Telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	if cfg.Development.MockBackend {
		addr, err := startMockBackend(log)
		if err != nil {
			return err
		}
		cfg.Backend.BaseURL = addr
	}

	cartMemory, err := buildCartMemory(cfg, log)
	if err != nil {
		return err
	}

	backendClient, err := buildBackendClient(cfg, log)
	if err != nil {
		return err
	}

	var cache catalog.Cache
	if cfg.Cache.Enabled {
		partitioned := catalog.NewCacheWithOptions(cfg.Cache.MaxSize, cfg.Cache.TTL)
		defer partitioned.Stop()
		cache = partitioned
	}

	catalogService, err := catalog.NewService(catalog.ServiceOptions{
		Client:          backendClient,
		Cache:           cache,
		CacheTTL:        cfg.Cache.TTL,
		DefaultPageSize: cfg.Backend.DefaultPageSize,
		Logger:          log,
		Telemetry:       tel,
	})
	if err != nil {
		return err
	}

	resolver := display.NewResolver(display.ResolverOptions{
		Catalog: catalogService,
		Logger:  log,
	})

	cartStore, err := cart.NewStore(cart.StoreOptions{
		Memory:    cartMemory,
		Logger:    log,
		Telemetry: tel,
		TTL:       cfg.Cart.TTL,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:   cfg,
		Logger:   log,
		Catalog:  catalogService,
		Resolver: resolver,
		Carts:    cartStore,
		Checkout: cart.NewCheckout(cfg.Checkout),
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startMockBackend serves the in-memory fake bakery API on a loopback
// port and returns its base URL. Development mode only.
func startMockBackend(log core.Logger) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("mock backend listener failed: %w", err)
	}

	mock := catalog.NewMockBackend()
	seedMockBackend(mock)
	go func() {
		if err := http.Serve(ln, mock); err != nil {
			log.Error("Mock backend stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	addr := "http://" + ln.Addr().String()
	log.Info("Mock backend running", map[string]interface{}{"url": addr})
	return addr, nil
}

// seedMockBackend loads a small catalog so development mode renders
// something.
func seedMockBackend(mock *catalog.MockBackend) {
	brigadeiros := mock.SeedCategory(catalog.Category{
		Name:         "Brigadeiros",
		SellingType:  catalog.SellingTypePackage,
		PackageSizes: []int{4, 6, 12},
	})
	bolos := mock.SeedCategory(catalog.Category{
		Name:        "Bolos",
		SellingType: catalog.SellingTypeUnit,
	})

	classic := mock.SeedFlavor(catalog.Flavor{Name: "Tradicional", CategoryID: brigadeiros.ID})
	mock.SeedFlavor(catalog.Flavor{Name: "Ninho com Nutella", CategoryID: brigadeiros.ID})

	discount := decimal.NewFromInt(10)
	box := mock.SeedProduct(catalog.Product{
		Name:       "Caixa de brigadeiros",
		Price:      decimal.NewFromFloat(24.90),
		Categories: []catalog.Category{brigadeiros},
		FlavorID:   classic.ID,
	})
	cake := mock.SeedProduct(catalog.Product{
		Name:       "Bolo de cenoura",
		Price:      decimal.NewFromFloat(49.90),
		Discount:   &discount,
		Categories: []catalog.Category{bolos},
	})

	mock.SeedSection(catalog.DisplaySection{
		Title:      "Brigadeiros",
		Type:       catalog.SectionTypeCategory,
		CategoryID: brigadeiros.ID,
		Active:     true,
		Order:      1,
	})
	mock.SeedSection(catalog.DisplaySection{
		Title:      "Promoções",
		Type:       catalog.SectionTypeDiscounted,
		Active:     true,
		Order:      2,
	})
	mock.SeedSection(catalog.DisplaySection{
		Title:      "Favoritos",
		Type:       catalog.SectionTypeCustom,
		ProductIDs: []string{box.ID, cake.ID},
		Active:     true,
		Order:      3,
	})
}

// buildCartMemory picks the cart persistence backend: Redis when
// configured, in-process memory otherwise.
func buildCartMemory(cfg *core.Config, log core.Logger) (core.Memory, error) {
	if cfg.Cart.Provider != "redis" {
		store := core.NewMemoryStore()
		store.SetLogger(log)
		return store, nil
	}

	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  cfg.Cart.RedisURL,
		DB:        core.RedisDBCarts,
		Namespace: cfg.Name,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("redis cart store failed: %w", err)
	}
	return client, nil
}

// buildBackendClient builds the catalog API client, traced when
// telemetry is on and retrying when the backend retry policy is
// enabled. A circuit breaker always guards the backend so a dead
// upstream fails fast instead of stacking timeouts.
func buildBackendClient(cfg *core.Config, log core.Logger) (*catalog.Client, error) {
	breaker := resilience.NewCircuitBreaker("catalog-backend", nil)
	breaker.SetLogger(log)

	opts := catalog.ClientOptions{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Logger:  log,
		Breaker: breaker,
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.TracingEnabled {
		opts.HTTPClient = telemetry.NewTracedHTTPClient(cfg.Backend.Timeout)
	}
	if cfg.Backend.RetryEnabled {
		retry := resilience.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Backend.RetryAttempts
		opts.Retry = retry
	}
	return catalog.NewClient(opts)
}
