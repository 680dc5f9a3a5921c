// Package server exposes the storefront over HTTP: catalog reads, cart
// mutations, resolved homepage sections, checkout handoff, and the
// admin write surface behind the auth gate.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/m4rrec0s/lna-doceria-storefront/cart"
	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
	"github.com/m4rrec0s/lna-doceria-storefront/display"
	"github.com/m4rrec0s/lna-doceria-storefront/telemetry"
)

// Server wires the storefront services behind an http.Server.
type Server struct {
	config   *core.Config
	logger   core.Logger
	catalog  *catalog.Service
	resolver *display.Resolver
	carts    *cart.Store
	checkout *cart.Checkout

	httpServer *http.Server
}

// Options carries the constructed services for a Server. All fields are
// required except Logger.
type Options struct {
	Config   *core.Config
	Logger   core.Logger
	Catalog  *catalog.Service
	Resolver *display.Resolver
	Carts    *cart.Store
	Checkout *cart.Checkout
}

// New creates a Server and builds its routing table.
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Catalog == nil || opts.Resolver == nil || opts.Carts == nil || opts.Checkout == nil {
		return nil, fmt.Errorf("server requires config and all services: %w", core.ErrInvalidConfiguration)
	}
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}

	s := &Server{
		config:   opts.Config,
		logger:   opts.Logger,
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		carts:    opts.Carts,
		checkout: opts.Checkout,
	}

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", opts.Config.Address, opts.Config.Port),
		Handler:        s.buildHandler(),
		ReadTimeout:    opts.Config.HTTP.ReadTimeout,
		WriteTimeout:   opts.Config.HTTP.WriteTimeout,
		IdleTimeout:    opts.Config.HTTP.IdleTimeout,
		MaxHeaderBytes: opts.Config.HTTP.MaxHeaderBytes,
	}
	return s, nil
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	healthPath := s.config.HTTP.HealthCheckPath
	mux.HandleFunc("GET "+healthPath, s.handleHealth)

	// Catalog reads.
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/flavors", s.handleListFlavors)
	mux.HandleFunc("GET /api/display-settings", s.handleListSections)
	mux.HandleFunc("GET /api/home/sections", s.handleHomeSections)

	// Cart.
	mux.HandleFunc("POST /api/carts", s.handleCreateCart)
	mux.HandleFunc("GET /api/carts/{cartId}", s.handleGetCart)
	mux.HandleFunc("DELETE /api/carts/{cartId}", s.handleClearCart)
	mux.HandleFunc("POST /api/carts/{cartId}/items", s.handleAddItem)
	mux.HandleFunc("PATCH /api/carts/{cartId}/items/{productId}", s.handleUpdateQuantity)
	mux.HandleFunc("DELETE /api/carts/{cartId}/items/{productId}", s.handleRemoveItem)
	mux.HandleFunc("GET /api/carts/{cartId}/checkout", s.handleCheckout)

	// Admin write surface, gated by token presence.
	mux.HandleFunc("GET "+s.config.Auth.LoginPath, s.handleLogin)
	mux.HandleFunc("GET "+s.config.Auth.AdminPathPrefix, s.handleAdminStatus)
	adminAPI := s.config.Auth.AdminPathPrefix + "/api"
	mux.HandleFunc("POST "+adminAPI+"/products", s.handleCreateProduct)
	mux.HandleFunc("PUT "+adminAPI+"/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE "+adminAPI+"/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST "+adminAPI+"/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT "+adminAPI+"/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE "+adminAPI+"/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST "+adminAPI+"/flavors", s.handleCreateFlavor)
	mux.HandleFunc("PUT "+adminAPI+"/flavors/{id}", s.handleUpdateFlavor)
	mux.HandleFunc("DELETE "+adminAPI+"/flavors/{id}", s.handleDeleteFlavor)
	mux.HandleFunc("POST "+adminAPI+"/display-settings", s.handleCreateSection)
	mux.HandleFunc("PUT "+adminAPI+"/display-settings/{id}", s.handleUpdateSection)
	mux.HandleFunc("DELETE "+adminAPI+"/display-settings/{id}", s.handleDeleteSection)

	// Middleware order: tracing outermost so every request gets a span,
	// then logging, CORS, and the auth gate closest to the handlers.
	var handler http.Handler = mux
	handler = core.AuthGateMiddleware(s.config.Auth, s.logger)(handler)
	handler = core.CORSMiddleware(&s.config.HTTP.CORS)(handler)
	handler = core.LoggingMiddleware(s.logger, s.config.Development.Enabled)(handler)
	if s.config.Telemetry.Enabled && s.config.Telemetry.TracingEnabled {
		handler = telemetry.TracingMiddleware(s.config.Name, healthPath)(handler)
	}
	return handler
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.logger.Info("Storefront server starting", map[string]interface{}{
		"address": s.httpServer.Addr,
		"name":    s.config.Name,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Storefront server shutting down", nil)
	return s.httpServer.Shutdown(ctx)
}
