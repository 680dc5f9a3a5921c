package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// countingHandler tracks how many requests reach the fake backend so
// tests can prove cache hits never touch the network.
type countingHandler struct {
	requests atomic.Int64
	next     http.Handler
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.requests.Add(1)
	h.next.ServeHTTP(w, r)
}

type serviceFixture struct {
	service *Service
	mock    *MockBackend
	counter *countingHandler
	server  *httptest.Server
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mock := NewMockBackend()
	counter := &countingHandler{next: mock}
	server := httptest.NewServer(counter)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	cache := NewCacheWithOptions(100, time.Hour)
	t.Cleanup(cache.Stop)

	service, err := NewService(ServiceOptions{
		Client:   client,
		Cache:    cache,
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	return &serviceFixture{service: service, mock: mock, counter: counter, server: server}
}

func seedProduct(f *serviceFixture, id, name string) Product {
	return f.mock.SeedProduct(Product{
		ID:    id,
		Name:  name,
		Price: decimal.NewFromInt(10),
	})
}

func TestListProductsReadThrough(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	seedProduct(f, "a", "Bolo")

	first := f.service.ListProducts(ctx, ListFilter{})
	if len(first) != 1 || first[0].ID != "a" {
		t.Fatalf("first list = %+v", first)
	}
	if got := f.counter.requests.Load(); got != 1 {
		t.Fatalf("requests after first list = %d, want 1", got)
	}

	// same filter: served from cache
	second := f.service.ListProducts(ctx, ListFilter{})
	if len(second) != 1 {
		t.Fatalf("second list = %+v", second)
	}
	if got := f.counter.requests.Load(); got != 1 {
		t.Errorf("requests after cached list = %d, want 1", got)
	}

	// different filter: separate cache key, fresh fetch
	f.service.ListProducts(ctx, ListFilter{Name: "bolo"})
	if got := f.counter.requests.Load(); got != 2 {
		t.Errorf("requests after filtered list = %d, want 2", got)
	}
}

func TestListProductsEquivalentFiltersShareCacheKey(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	seedProduct(f, "a", "Bolo")

	// normalization makes the zero filter and page 1 the same key, and
	// id order does not matter
	f.service.ListProducts(ctx, ListFilter{IDs: []string{"b", "a"}})
	f.service.ListProducts(ctx, ListFilter{Page: 1, IDs: []string{"a", "b"}})

	if got := f.counter.requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestListProductsBackendFailure(t *testing.T) {
	ctx := context.Background()

	var fail atomic.Bool
	mock := NewMockBackend()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		mock.ServeHTTP(w, r)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	service, err := NewService(ServiceOptions{Client: client})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	fail.Store(true)
	products := service.ListProducts(ctx, ListFilter{})
	if products == nil || len(products) != 0 {
		t.Fatalf("failed list = %v, want empty non-nil slice", products)
	}
	if service.LastError(ResourceProducts) == "" {
		t.Fatal("expected a recorded error")
	}

	// recovery clears the recorded error
	fail.Store(false)
	mock.SeedProduct(Product{ID: "a", Name: "Bolo", Price: decimal.NewFromInt(10)})
	if got := service.ListProducts(ctx, ListFilter{}); len(got) != 1 {
		t.Fatalf("recovered list = %+v", got)
	}
	if msg := service.LastError(ResourceProducts); msg != "" {
		t.Errorf("lastError after recovery = %q, want empty", msg)
	}
}

func TestListProductsByIDsEmptySkipsBackend(t *testing.T) {
	f := newServiceFixture(t)

	products := f.service.ListProductsByIDs(context.Background(), nil, 100)
	if len(products) != 0 {
		t.Fatalf("products = %+v, want empty", products)
	}
	if got := f.counter.requests.Load(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestCreateProductInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	seedProduct(f, "a", "Bolo")

	if got := f.service.ListProducts(ctx, ListFilter{}); len(got) != 1 {
		t.Fatalf("initial list = %+v", got)
	}

	created, err := f.service.CreateProduct(ctx, ProductInput{
		Name:  "Torta",
		Price: decimal.NewFromFloat(15.50),
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created product has no id")
	}

	// the partition was cleared, so the next list sees the new product
	products := f.service.ListProducts(ctx, ListFilter{})
	if len(products) != 2 {
		t.Fatalf("list after create = %d products, want 2", len(products))
	}
}

func TestCreatedProductCarriesItsCategories(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	category := f.mock.SeedCategory(Category{Name: "Bolos", SellingType: SellingTypeUnit})

	created, err := f.service.CreateProduct(ctx, ProductInput{
		Name:        "Bolo de cenoura",
		Price:       decimal.NewFromFloat(49.90),
		CategoryIDs: []string{category.ID},
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if len(created.Categories) != 1 || created.Categories[0].ID != category.ID {
		t.Fatalf("created categories = %+v", created.Categories)
	}
	if created.Categories[0].Name != "Bolos" {
		t.Errorf("category was not expanded: %+v", created.Categories[0])
	}

	// the categoryId filter matches against the attached categories
	filtered := f.service.ListProducts(ctx, ListFilter{CategoryID: category.ID})
	if len(filtered) != 1 || filtered[0].ID != created.ID {
		t.Fatalf("filtered list = %+v", filtered)
	}
	if got := f.service.ListProducts(ctx, ListFilter{CategoryID: "other"}); len(got) != 0 {
		t.Errorf("unrelated category matched: %+v", got)
	}
}

func TestDeleteProductRecordsBackendError(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	err := f.service.DeleteProduct(ctx, "missing")
	if err == nil {
		t.Fatal("expected delete of missing product to fail")
	}
	if f.service.LastError(ResourceProducts) == "" {
		t.Error("write failure should be recorded")
	}
}

func TestSectionWriteRefreshesSectionPartitionOnly(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	seedProduct(f, "a", "Bolo")
	f.mock.SeedSection(DisplaySection{Title: "Promoções", Type: SectionTypeDiscounted, Active: true})

	f.service.ListProducts(ctx, ListFilter{})
	f.service.ListSections(ctx, ListFilter{})
	base := f.counter.requests.Load()

	if _, err := f.service.CreateSection(ctx, SectionInput{Title: "Novidades", Type: SectionTypeNewArrivals, Active: true}); err != nil {
		t.Fatalf("CreateSection failed: %v", err)
	}

	// products stay cached across a section write
	f.service.ListProducts(ctx, ListFilter{})
	afterProducts := f.counter.requests.Load()
	if afterProducts != base+2 { // create + refresh list
		t.Errorf("requests = %d, want %d (create + section refresh)", afterProducts, base+2)
	}

	sections := f.service.ListSections(ctx, ListFilter{})
	if len(sections) != 2 {
		t.Errorf("sections = %d, want 2", len(sections))
	}
}

// recordingTelemetry captures span names and metric labels so tests can
// assert what the service reports.
type recordingTelemetry struct {
	mu      sync.Mutex
	spans   []string
	metrics []map[string]string
}

func (rt *recordingTelemetry) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	rt.mu.Lock()
	rt.spans = append(rt.spans, name)
	rt.mu.Unlock()
	return ctx, &core.NoOpSpan{}
}

func (rt *recordingTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	copied := map[string]string{"name": name}
	for k, v := range labels {
		copied[k] = v
	}
	rt.mu.Lock()
	rt.metrics = append(rt.metrics, copied)
	rt.mu.Unlock()
}

func TestServiceReportsSpansAndCacheMetrics(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	seedProduct(f, "a", "Bolo")

	telemetry := &recordingTelemetry{}
	cache := NewCacheWithOptions(100, time.Hour)
	t.Cleanup(cache.Stop)
	service, err := NewService(ServiceOptions{
		Client:    f.service.client,
		Cache:     cache,
		CacheTTL:  time.Minute,
		Telemetry: telemetry,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	service.ListProducts(ctx, ListFilter{}) // miss
	service.ListProducts(ctx, ListFilter{}) // hit

	if len(telemetry.spans) != 2 || telemetry.spans[0] != "catalog.ListProducts" {
		t.Errorf("spans = %v", telemetry.spans)
	}
	if len(telemetry.metrics) != 2 {
		t.Fatalf("metrics = %v", telemetry.metrics)
	}
	if telemetry.metrics[0]["result"] != "miss" || telemetry.metrics[1]["result"] != "hit" {
		t.Errorf("cache outcomes = %v", telemetry.metrics)
	}
	if telemetry.metrics[0]["resource"] != "products" {
		t.Errorf("resource label = %v", telemetry.metrics[0])
	}

	// writes get their own span (plus the refresh re-list)
	if _, err := service.CreateProduct(ctx, ProductInput{Name: "Torta", Price: decimal.NewFromInt(12)}); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	var sawWrite bool
	for _, name := range telemetry.spans {
		if name == "catalog.CreateProduct" {
			sawWrite = true
		}
	}
	if !sawWrite {
		t.Errorf("no write span recorded: %v", telemetry.spans)
	}
}

func TestCategoriesAndFlavorsReadThrough(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	category := f.mock.SeedCategory(Category{Name: "Brigadeiros", SellingType: SellingTypePackage})
	f.mock.SeedFlavor(Flavor{Name: "Tradicional", CategoryID: category.ID})

	if got := f.service.ListCategories(ctx, ListFilter{}); len(got) != 1 || got[0].Name != "Brigadeiros" {
		t.Fatalf("categories = %+v", got)
	}
	if got := f.service.ListFlavors(ctx, ListFilter{CategoryID: category.ID}); len(got) != 1 {
		t.Fatalf("flavors = %+v", got)
	}

	base := f.counter.requests.Load()
	f.service.ListCategories(ctx, ListFilter{})
	f.service.ListFlavors(ctx, ListFilter{CategoryID: category.ID})
	if got := f.counter.requests.Load(); got != base {
		t.Errorf("cached reads hit the backend: %d extra requests", got-base)
	}
}
