package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
	"github.com/m4rrec0s/lna-doceria-storefront/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientOptions{}); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestClientNotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, NewMockBackend())

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"product", func() error { _, err := client.GetProduct(ctx, "x"); return err }, core.ErrProductNotFound},
		{"category", func() error { return client.DeleteCategory(ctx, "x") }, core.ErrCategoryNotFound},
		{"flavor", func() error { return client.DeleteFlavor(ctx, "x") }, core.ErrFlavorNotFound},
		{"section", func() error { return client.DeleteSection(ctx, "x") }, core.ErrSectionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientConnectionFailure(t *testing.T) {
	// a closed server port forces a transport-level failure
	server := httptest.NewServer(NewMockBackend())
	server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.ListProducts(context.Background(), ListFilter{})
	if !errors.Is(err, core.ErrConnectionFailed) {
		t.Fatalf("error = %v, want ErrConnectionFailed", err)
	}
}

func TestClientServerErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ListProducts(context.Background(), ListFilter{})
	if !errors.Is(err, core.ErrRequestFailed) {
		t.Fatalf("error = %v, want ErrRequestFailed", err)
	}
}

func TestClientMultipartCreate(t *testing.T) {
	var gotName, gotPrice, gotFilename string
	mock := NewMockBackend()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotName = r.FormValue("name")
			gotPrice = r.FormValue("price")
			if _, header, err := r.FormFile("image"); err == nil {
				gotFilename = header.Filename
			}
		}
		mock.ServeHTTP(w, r)
	}))

	discount := decimal.NewFromInt(10)
	product, err := client.CreateProduct(context.Background(), ProductInput{
		Name:     "Torta",
		Price:    decimal.NewFromFloat(15.50),
		Discount: &discount,
		Image:    &ImageUpload{Filename: "torta.jpg", Content: []byte("jpeg-bytes")},
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	if gotName != "Torta" || gotPrice != "15.5" {
		t.Errorf("form fields name=%q price=%q", gotName, gotPrice)
	}
	if gotFilename != "torta.jpg" {
		t.Errorf("image filename = %q", gotFilename)
	}
	if product.Name != "Torta" || !product.Price.Equal(decimal.NewFromFloat(15.50)) {
		t.Errorf("created = %+v", product)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	mock := NewMockBackend()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		mock.ServeHTTP(w, r)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseURL: server.URL,
		Retry: &resilience.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.ListProducts(context.Background(), ListFilter{}); err != nil {
		t.Fatalf("ListProducts failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClientCircuitBreakerFailsFast(t *testing.T) {
	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	breaker := resilience.NewCircuitBreaker("catalog-backend", &resilience.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          time.Hour,
		HalfOpenRequests: 1,
	})
	client, err := NewClient(ClientOptions{BaseURL: server.URL, Breaker: breaker})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.ListProducts(ctx, ListFilter{}); !errors.Is(err, core.ErrRequestFailed) {
			t.Fatalf("call %d error = %v, want ErrRequestFailed", i+1, err)
		}
	}

	// circuit is open: the backend is no longer contacted
	_, err = client.ListProducts(ctx, ListFilter{})
	if !errors.Is(err, core.ErrCircuitBreakerOpen) {
		t.Fatalf("error = %v, want ErrCircuitBreakerOpen", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
}

func TestListFilterQueryEncoding(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		NewMockBackend().ServeHTTP(w, r)
	}))

	_, err := client.ListProducts(context.Background(), ListFilter{
		Page:       2,
		PerPage:    30,
		Name:       "bolo",
		CategoryID: "cat-1",
		IDs:        []string{"b", "a"},
	})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}

	parsed, err := url.ParseQuery(gotQuery)
	if err != nil {
		t.Fatalf("bad query %q: %v", gotQuery, err)
	}
	if parsed.Get("page") != "2" || parsed.Get("per_page") != "30" {
		t.Errorf("pagination params = %q", gotQuery)
	}
	if parsed.Get("name") != "bolo" || parsed.Get("categoryId") != "cat-1" {
		t.Errorf("filter params = %q", gotQuery)
	}
	if ids := parsed["ids[]"]; len(ids) != 2 {
		t.Errorf("ids[] = %v", ids)
	}
}
