package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// Service is the cached catalog access layer. Reads go through the
// injected cache (read-through, keyed by the normalized filter); writes
// invalidate the resource's whole cache partition and repopulate it with
// a fresh list.
//
// Two error styles coexist by contract: list operations record a
// human-readable error on the service and return an empty collection,
// so callers must check LastError; write operations record the error
// AND return it.
type Service struct {
	client          *Client
	cache           Cache
	cacheTTL        time.Duration
	defaultPageSize int
	logger          core.Logger
	telemetry       core.Telemetry

	mu         sync.RWMutex
	lastErrors map[Resource]string
}

// ServiceOptions configures the catalog service.
type ServiceOptions struct {
	Client          *Client
	Cache           Cache // nil disables caching
	CacheTTL        time.Duration
	DefaultPageSize int
	Logger          core.Logger
	Telemetry       core.Telemetry // nil means no tracing or metrics
}

// NewService creates a catalog service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("backend client is required: %w", core.ErrInvalidConfiguration)
	}

	cache := opts.Cache
	if cache == nil {
		cache = noopCache{}
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	pageSize := opts.DefaultPageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	telemetry := opts.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	return &Service{
		client:          opts.Client,
		cache:           cache,
		cacheTTL:        ttl,
		defaultPageSize: pageSize,
		logger:          logger,
		telemetry:       telemetry,
		lastErrors:      make(map[Resource]string),
	}, nil
}

// LastError returns the recorded error message for the resource, empty
// when the last operation succeeded.
func (s *Service) LastError(resource Resource) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErrors[resource]
}

func (s *Service) recordError(resource Resource, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErrors[resource] = err.Error()
}

func (s *Service) clearError(resource Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastErrors, resource)
}

// recordCacheOutcome counts list lookups per resource, split by whether
// the cache answered them.
func (s *Service) recordCacheOutcome(resource Resource, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	s.telemetry.RecordMetric("catalog.cache.requests", 1, map[string]string{
		"resource": resource.String(),
		"result":   result,
	})
}

// write runs a backend mutation inside a span, recording failures on
// both the span and the error ledger, then refreshes the resource's
// cache partition.
func (s *Service) write(ctx context.Context, resource Resource, op string, fn func(context.Context) error) error {
	ctx, span := s.telemetry.StartSpan(ctx, op)
	defer span.End()
	span.SetAttribute("catalog.resource", resource.String())

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		s.recordError(resource, err)
		return err
	}
	s.refresh(ctx, resource)
	return nil
}

// --- Products ---

// ListProducts returns products matching the filter. On a cache hit the
// cached envelope is returned without touching the network. On failure
// the error is recorded and an empty slice is returned; check
// LastError(ResourceProducts).
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) []Product {
	ctx, span := s.telemetry.StartSpan(ctx, "catalog.ListProducts")
	defer span.End()

	filter = filter.normalize(s.defaultPageSize)
	key := filter.CacheKey()

	if cached, ok := s.cache.Get(ResourceProducts, key); ok {
		if page, ok := cached.(*ProductPage); ok {
			s.recordCacheOutcome(ResourceProducts, true)
			s.logger.Debug("Catalog cache hit", map[string]interface{}{
				"resource": ResourceProducts.String(),
				"key":      key,
			})
			return page.Data
		}
	}
	s.recordCacheOutcome(ResourceProducts, false)

	page, err := s.client.ListProducts(ctx, filter)
	if err != nil {
		span.RecordError(err)
		s.recordError(ResourceProducts, err)
		s.logger.Error("Failed to list products", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"filter":     key,
		})
		return []Product{}
	}

	s.clearError(ResourceProducts)
	s.cache.Set(ResourceProducts, key, page, s.cacheTTL)
	return page.Data
}

// ListProductsByIDs returns the products whose id is in ids.
func (s *Service) ListProductsByIDs(ctx context.Context, ids []string, perPage int) []Product {
	if len(ids) == 0 {
		return []Product{}
	}
	return s.ListProducts(ctx, ListFilter{IDs: ids, PerPage: perPage})
}

// ListProductsByCategory returns products in the given category.
func (s *Service) ListProductsByCategory(ctx context.Context, categoryID string, perPage int) []Product {
	if categoryID == "" {
		return []Product{}
	}
	return s.ListProducts(ctx, ListFilter{CategoryID: categoryID, PerPage: perPage})
}

// CreateProduct creates a product, evicts the products partition, and
// repopulates it.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	var product *Product
	err := s.write(ctx, ResourceProducts, "catalog.CreateProduct", func(ctx context.Context) error {
		var err error
		product, err = s.client.CreateProduct(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates a product, evicts the products partition, and
// repopulates it.
func (s *Service) UpdateProduct(ctx context.Context, id string, input ProductInput) (*Product, error) {
	var product *Product
	err := s.write(ctx, ResourceProducts, "catalog.UpdateProduct", func(ctx context.Context) error {
		var err error
		product, err = s.client.UpdateProduct(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deletes a product, evicts the products partition, and
// repopulates it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.write(ctx, ResourceProducts, "catalog.DeleteProduct", func(ctx context.Context) error {
		return s.client.DeleteProduct(ctx, id)
	})
}

// --- Categories ---

// ListCategories returns categories matching the filter. Failures are
// recorded; check LastError(ResourceCategories).
func (s *Service) ListCategories(ctx context.Context, filter ListFilter) []Category {
	ctx, span := s.telemetry.StartSpan(ctx, "catalog.ListCategories")
	defer span.End()

	filter = filter.normalize(s.defaultPageSize)
	key := filter.CacheKey()

	if cached, ok := s.cache.Get(ResourceCategories, key); ok {
		if page, ok := cached.(*CategoryPage); ok {
			s.recordCacheOutcome(ResourceCategories, true)
			return page.Data
		}
	}
	s.recordCacheOutcome(ResourceCategories, false)

	page, err := s.client.ListCategories(ctx, filter)
	if err != nil {
		span.RecordError(err)
		s.recordError(ResourceCategories, err)
		s.logger.Error("Failed to list categories", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"filter":     key,
		})
		return []Category{}
	}

	s.clearError(ResourceCategories)
	s.cache.Set(ResourceCategories, key, page, s.cacheTTL)
	return page.Data
}

// CreateCategory creates a category and refreshes the partition.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	var category *Category
	err := s.write(ctx, ResourceCategories, "catalog.CreateCategory", func(ctx context.Context) error {
		var err error
		category, err = s.client.CreateCategory(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory updates a category and refreshes the partition.
func (s *Service) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*Category, error) {
	var category *Category
	err := s.write(ctx, ResourceCategories, "catalog.UpdateCategory", func(ctx context.Context) error {
		var err error
		category, err = s.client.UpdateCategory(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory deletes a category and refreshes the partition.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.write(ctx, ResourceCategories, "catalog.DeleteCategory", func(ctx context.Context) error {
		return s.client.DeleteCategory(ctx, id)
	})
}

// --- Flavors ---

// ListFlavors returns flavors matching the filter. Failures are
// recorded; check LastError(ResourceFlavors).
func (s *Service) ListFlavors(ctx context.Context, filter ListFilter) []Flavor {
	ctx, span := s.telemetry.StartSpan(ctx, "catalog.ListFlavors")
	defer span.End()

	filter = filter.normalize(s.defaultPageSize)
	key := filter.CacheKey()

	if cached, ok := s.cache.Get(ResourceFlavors, key); ok {
		if page, ok := cached.(*FlavorPage); ok {
			s.recordCacheOutcome(ResourceFlavors, true)
			return page.Data
		}
	}
	s.recordCacheOutcome(ResourceFlavors, false)

	page, err := s.client.ListFlavors(ctx, filter)
	if err != nil {
		span.RecordError(err)
		s.recordError(ResourceFlavors, err)
		s.logger.Error("Failed to list flavors", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"filter":     key,
		})
		return []Flavor{}
	}

	s.clearError(ResourceFlavors)
	s.cache.Set(ResourceFlavors, key, page, s.cacheTTL)
	return page.Data
}

// CreateFlavor creates a flavor and refreshes the partition.
func (s *Service) CreateFlavor(ctx context.Context, input FlavorInput) (*Flavor, error) {
	var flavor *Flavor
	err := s.write(ctx, ResourceFlavors, "catalog.CreateFlavor", func(ctx context.Context) error {
		var err error
		flavor, err = s.client.CreateFlavor(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flavor, nil
}

// UpdateFlavor updates a flavor and refreshes the partition.
func (s *Service) UpdateFlavor(ctx context.Context, id string, input FlavorInput) (*Flavor, error) {
	var flavor *Flavor
	err := s.write(ctx, ResourceFlavors, "catalog.UpdateFlavor", func(ctx context.Context) error {
		var err error
		flavor, err = s.client.UpdateFlavor(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return flavor, nil
}

// DeleteFlavor deletes a flavor and refreshes the partition.
func (s *Service) DeleteFlavor(ctx context.Context, id string) error {
	return s.write(ctx, ResourceFlavors, "catalog.DeleteFlavor", func(ctx context.Context) error {
		return s.client.DeleteFlavor(ctx, id)
	})
}

// --- Display sections ---

// ListSections returns display sections matching the filter. Failures
// are recorded; check LastError(ResourceSections).
func (s *Service) ListSections(ctx context.Context, filter ListFilter) []DisplaySection {
	ctx, span := s.telemetry.StartSpan(ctx, "catalog.ListSections")
	defer span.End()

	filter = filter.normalize(s.defaultPageSize)
	key := filter.CacheKey()

	if cached, ok := s.cache.Get(ResourceSections, key); ok {
		if page, ok := cached.(*SectionPage); ok {
			s.recordCacheOutcome(ResourceSections, true)
			return page.Data
		}
	}
	s.recordCacheOutcome(ResourceSections, false)

	page, err := s.client.ListSections(ctx, filter)
	if err != nil {
		span.RecordError(err)
		s.recordError(ResourceSections, err)
		s.logger.Error("Failed to list display sections", map[string]interface{}{
			"error":      err,
			"error_type": fmt.Sprintf("%T", err),
			"filter":     key,
		})
		return []DisplaySection{}
	}

	s.clearError(ResourceSections)
	s.cache.Set(ResourceSections, key, page, s.cacheTTL)
	return page.Data
}

// CreateSection creates a display section and refreshes the partition.
func (s *Service) CreateSection(ctx context.Context, input SectionInput) (*DisplaySection, error) {
	var section *DisplaySection
	err := s.write(ctx, ResourceSections, "catalog.CreateSection", func(ctx context.Context) error {
		var err error
		section, err = s.client.CreateSection(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// UpdateSection updates a display section and refreshes the partition.
func (s *Service) UpdateSection(ctx context.Context, id string, input SectionInput) (*DisplaySection, error) {
	var section *DisplaySection
	err := s.write(ctx, ResourceSections, "catalog.UpdateSection", func(ctx context.Context) error {
		var err error
		section, err = s.client.UpdateSection(ctx, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// DeleteSection deletes a display section and refreshes the partition.
func (s *Service) DeleteSection(ctx context.Context, id string) error {
	return s.write(ctx, ResourceSections, "catalog.DeleteSection", func(ctx context.Context) error {
		return s.client.DeleteSection(ctx, id)
	})
}

// CacheStats returns the injected cache's statistics.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// refresh evicts the resource's partition and issues a default list to
// repopulate it. The re-list result itself is discarded; only the cache
// side effect matters here.
func (s *Service) refresh(ctx context.Context, resource Resource) {
	s.cache.ClearPartition(resource)
	s.clearError(resource)

	s.logger.Debug("Cache partition evicted after write", map[string]interface{}{
		"resource": resource.String(),
	})

	switch resource {
	case ResourceProducts:
		s.ListProducts(ctx, ListFilter{})
	case ResourceCategories:
		s.ListCategories(ctx, ListFilter{})
	case ResourceFlavors:
		s.ListFlavors(ctx, ListFilter{})
	case ResourceSections:
		s.ListSections(ctx, ListFilter{})
	}
}
