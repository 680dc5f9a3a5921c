package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/core"
	"github.com/m4rrec0s/lna-doceria-storefront/resilience"
)

// Client is the single point of contact with the remote catalog backend.
// It handles URL building, request encoding (JSON and multipart), and
// error translation into the service's sentinel errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	retry      *resilience.RetryConfig    // nil disables transparent retries
	breaker    *resilience.CircuitBreaker // nil disables fail-fast
}

// ClientOptions configures the backend client.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client // optional; pass a traced client for otel propagation
	Timeout    time.Duration
	Logger     core.Logger
	Retry      *resilience.RetryConfig    // optional; nil means no retries
	Breaker    *resilience.CircuitBreaker // optional; nil means no circuit breaking
}

// NewClient creates a backend client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required: %w", core.ErrInvalidConfiguration)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		retry:      opts.Retry,
		breaker:    opts.Breaker,
	}, nil
}

// --- Products ---

// ListProducts fetches a page of products matching the filter.
func (c *Client) ListProducts(ctx context.Context, filter ListFilter) (*ProductPage, error) {
	var page ProductPage
	if err := c.getJSON(ctx, ResourceProducts.Path(), filter.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.getJSON(ctx, ResourceProducts.Path()+"/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a product. The image travels in the same
// multipart form as the product fields.
func (c *Client) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	var product Product
	if err := c.sendMultipart(ctx, http.MethodPost, ResourceProducts.Path(), input.formValues(), input.Image, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct updates a product by id.
func (c *Client) UpdateProduct(ctx context.Context, id string, input ProductInput) (*Product, error) {
	var product Product
	path := ResourceProducts.Path() + "/" + url.PathEscape(id)
	if err := c.sendMultipart(ctx, http.MethodPut, path, input.formValues(), input.Image, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct deletes a product by id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, ResourceProducts.Path()+"/"+url.PathEscape(id), nil, nil)
}

// --- Categories ---

// ListCategories fetches a page of categories matching the filter.
func (c *Client) ListCategories(ctx context.Context, filter ListFilter) (*CategoryPage, error) {
	var page CategoryPage
	if err := c.getJSON(ctx, ResourceCategories.Path(), filter.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	var category Category
	if err := c.send(ctx, http.MethodPost, ResourceCategories.Path(), input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// UpdateCategory updates a category by id.
func (c *Client) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*Category, error) {
	var category Category
	path := ResourceCategories.Path() + "/" + url.PathEscape(id)
	if err := c.send(ctx, http.MethodPut, path, input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory deletes a category by id.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, ResourceCategories.Path()+"/"+url.PathEscape(id), nil, nil)
}

// --- Flavors ---

// ListFlavors fetches a page of flavors matching the filter.
func (c *Client) ListFlavors(ctx context.Context, filter ListFilter) (*FlavorPage, error) {
	var page FlavorPage
	if err := c.getJSON(ctx, ResourceFlavors.Path(), filter.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateFlavor creates a flavor. Like products, flavor writes carry an
// optional image in a multipart form.
func (c *Client) CreateFlavor(ctx context.Context, input FlavorInput) (*Flavor, error) {
	var flavor Flavor
	if err := c.sendMultipart(ctx, http.MethodPost, ResourceFlavors.Path(), input.formValues(), input.Image, &flavor); err != nil {
		return nil, err
	}
	return &flavor, nil
}

// UpdateFlavor updates a flavor by id.
func (c *Client) UpdateFlavor(ctx context.Context, id string, input FlavorInput) (*Flavor, error) {
	var flavor Flavor
	path := ResourceFlavors.Path() + "/" + url.PathEscape(id)
	if err := c.sendMultipart(ctx, http.MethodPut, path, input.formValues(), input.Image, &flavor); err != nil {
		return nil, err
	}
	return &flavor, nil
}

// DeleteFlavor deletes a flavor by id.
func (c *Client) DeleteFlavor(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, ResourceFlavors.Path()+"/"+url.PathEscape(id), nil, nil)
}

// --- Display sections ---

// ListSections fetches a page of display sections matching the filter.
func (c *Client) ListSections(ctx context.Context, filter ListFilter) (*SectionPage, error) {
	var page SectionPage
	if err := c.getJSON(ctx, ResourceSections.Path(), filter.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateSection creates a display section.
func (c *Client) CreateSection(ctx context.Context, input SectionInput) (*DisplaySection, error) {
	var section DisplaySection
	if err := c.send(ctx, http.MethodPost, ResourceSections.Path(), input, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// UpdateSection updates a display section by id.
func (c *Client) UpdateSection(ctx context.Context, id string, input SectionInput) (*DisplaySection, error) {
	var section DisplaySection
	path := ResourceSections.Path() + "/" + url.PathEscape(id)
	if err := c.send(ctx, http.MethodPut, path, input, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// DeleteSection deletes a display section by id.
func (c *Client) DeleteSection(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, ResourceSections.Path()+"/"+url.PathEscape(id), nil, nil)
}

// --- Transport helpers ---

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return c.execute(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, out)
}

// send issues a request with an optional JSON body and decodes the
// response into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	u := c.baseURL + path

	return c.execute(ctx, func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
			reader = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, out)
}

// sendMultipart issues a request whose body is a multipart form carrying
// the given fields and optional image file.
func (c *Client) sendMultipart(ctx context.Context, method, path string, fields map[string]string, image *ImageUpload, out interface{}) error {
	u := c.baseURL + path

	return c.execute(ctx, func() (*http.Request, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		for key, value := range fields {
			if err := writer.WriteField(key, value); err != nil {
				return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
			}
		}

		if image != nil {
			part, err := writer.CreateFormFile("image", image.Filename)
			if err != nil {
				return nil, fmt.Errorf("failed to create image form file: %w", err)
			}
			if _, err := part.Write(image.Content); err != nil {
				return nil, fmt.Errorf("failed to write image content: %w", err)
			}
		}

		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	}, out)
}

// execute runs the request through the configured resilience layers
// (retry, circuit breaker) and decodes the response. Request
// construction is deferred into a factory so each retry attempt gets a
// fresh body.
func (c *Client) execute(ctx context.Context, newRequest func() (*http.Request, error), out interface{}) error {
	attempt := func() error {
		req, err := newRequest()
		if err != nil {
			return err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("Backend request failed", map[string]interface{}{
				"method":      req.Method,
				"url":         req.URL.String(),
				"error":       err,
				"error_type":  fmt.Sprintf("%T", err),
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return fmt.Errorf("%v: %w", err, core.ErrConnectionFailed)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("backend returned 404 for %s: %w", req.URL.Path, notFoundError(req.URL.Path))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			c.logger.Error("Backend returned error status", map[string]interface{}{
				"method":      req.Method,
				"url":         req.URL.String(),
				"status_code": resp.StatusCode,
				"body":        string(body),
			})
			return fmt.Errorf("backend returned status %d: %w", resp.StatusCode, core.ErrRequestFailed)
		}

		c.logger.Debug("Backend request completed", map[string]interface{}{
			"method":      req.Method,
			"url":         req.URL.String(),
			"status_code": resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		})

		if out == nil {
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", core.ErrRequestFailed)
		}
		return nil
	}

	switch {
	case c.retry != nil && c.breaker != nil:
		return resilience.RetryWithCircuitBreaker(ctx, c.retry, c.breaker, attempt)
	case c.breaker != nil:
		return c.breaker.Execute(ctx, attempt)
	case c.retry != nil:
		return resilience.Retry(ctx, c.retry, attempt)
	default:
		return attempt()
	}
}

// notFoundError maps a resource path to its sentinel not-found error.
func notFoundError(path string) error {
	switch {
	case strings.Contains(path, string(ResourceProducts)):
		return core.ErrProductNotFound
	case strings.Contains(path, string(ResourceCategories)):
		return core.ErrCategoryNotFound
	case strings.Contains(path, string(ResourceFlavors)):
		return core.ErrFlavorNotFound
	case strings.Contains(path, string(ResourceSections)):
		return core.ErrSectionNotFound
	default:
		return core.ErrRequestFailed
	}
}
