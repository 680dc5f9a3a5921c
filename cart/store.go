package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// Notifier receives user-facing notifications for cart mutations. The
// HTTP layer turns these into toast payloads; a NoOpNotifier is used
// when nothing is listening.
type Notifier interface {
	ItemAdded(productName string)
	ItemRemoved(productName string)
	CartCleared()
}

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) ItemAdded(string)   {}
func (NoOpNotifier) ItemRemoved(string) {}
func (NoOpNotifier) CartCleared()       {}

// Store owns cart lifecycle: it loads, mutates, and persists carts
// through a core.Memory backend. Every mutation is written back
// immediately as a full overwrite, so the persisted state always mirrors
// the last completed operation.
type Store struct {
	memory    core.Memory
	notifier  Notifier
	logger    core.Logger
	telemetry core.Telemetry
	ttl       time.Duration
}

// StoreOptions configures a Store. Memory is required; the rest default
// to no-ops and no expiry.
type StoreOptions struct {
	Memory    core.Memory
	Notifier  Notifier
	Logger    core.Logger
	Telemetry core.Telemetry
	TTL       time.Duration
}

// NewStore creates a cart store backed by the given memory.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Memory == nil {
		return nil, fmt.Errorf("cart store requires a memory backend: %w", core.ErrInvalidConfiguration)
	}
	if opts.Notifier == nil {
		opts.Notifier = NoOpNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}
	if opts.Telemetry == nil {
		opts.Telemetry = &core.NoOpTelemetry{}
	}
	return &Store{
		memory:    opts.Memory,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
		ttl:       opts.TTL,
	}, nil
}

// startSpan opens a mutation span tagged with the cart id.
func (s *Store) startSpan(ctx context.Context, name, cartID string) (context.Context, core.Span) {
	ctx, span := s.telemetry.StartSpan(ctx, name)
	span.SetAttribute("cart.id", cartID)
	return ctx, span
}

func cartKey(cartID string) string {
	return "cart:" + cartID
}

// Get loads a cart by id. A missing or unreadable cart hydrates to an
// empty cart under the same id rather than failing: the shopper sees an
// empty cart, never an error page.
func (s *Store) Get(ctx context.Context, cartID string) *Cart {
	c := &Cart{ID: cartID}

	raw, err := s.memory.Get(ctx, cartKey(cartID))
	if err != nil {
		s.logger.Error("Failed to load cart, starting empty", map[string]interface{}{
			"cart_id": cartID,
			"error":   err.Error(),
		})
		return c
	}
	if raw == "" {
		return c
	}

	if err := json.Unmarshal([]byte(raw), c); err != nil {
		s.logger.Error("Discarding corrupted cart payload", map[string]interface{}{
			"cart_id": cartID,
			"error":   err.Error(),
		})
		return &Cart{ID: cartID}
	}
	c.ID = cartID

	if dropped := c.sanitize(); dropped > 0 {
		s.logger.Warn("Dropped invalid cart lines during hydration", map[string]interface{}{
			"cart_id": cartID,
			"dropped": dropped,
			"kept":    len(c.Items),
		})
		// Persist the cleaned cart so the bad lines don't come back.
		if err := s.save(ctx, c); err != nil {
			s.logger.Error("Failed to persist sanitized cart", map[string]interface{}{
				"cart_id": cartID,
				"error":   err.Error(),
			})
		}
	}

	return c
}

// AddItem adds a product to the cart and persists the result.
func (s *Store) AddItem(ctx context.Context, cartID string, product catalog.Product, opts AddOptions) (*Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.AddItem", cartID)
	defer span.End()

	c := s.Get(ctx, cartID)
	created := c.AddItem(product, opts)

	if err := s.save(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// merges restate an existing line; only brand-new lines announce
	if created {
		s.notifier.ItemAdded(product.Name)
	}
	s.logger.Info("Item added to cart", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": product.ID,
		"new_line":   created,
		"lines":      len(c.Items),
	})
	return c, nil
}

// RemoveItem removes all lines for the product id and persists the
// result. Removing an absent product is a persisted no-op.
func (s *Store) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.RemoveItem", cartID)
	defer span.End()

	c := s.Get(ctx, cartID)
	removed := c.RemoveItem(productID)

	if err := s.save(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, item := range removed {
		s.notifier.ItemRemoved(item.Product.Name)
	}
	s.logger.Info("Item removed from cart", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"removed":    len(removed),
		"lines":      len(c.Items),
	})
	return c, nil
}

// UpdateItemQuantity sets the quantity for the product's lines.
// Quantities below 1 leave the cart untouched.
func (s *Store) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) (*Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.UpdateItemQuantity", cartID)
	defer span.End()

	c := s.Get(ctx, cartID)
	if !c.UpdateItemQuantity(productID, quantity) {
		return c, nil
	}

	if err := s.save(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("Cart quantity updated", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return c, nil
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context, cartID string) (*Cart, error) {
	ctx, span := s.startSpan(ctx, "cart.Clear", cartID)
	defer span.End()

	c := s.Get(ctx, cartID)
	c.Clear()

	if err := s.save(ctx, c); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.notifier.CartCleared()
	s.logger.Info("Cart cleared", map[string]interface{}{"cart_id": cartID})
	return c, nil
}

func (s *Store) save(ctx context.Context, c *Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return &core.StoreError{
			Op:      "cart.save",
			Kind:    "cart",
			ID:      c.ID,
			Message: "failed to encode cart",
			Err:     err,
		}
	}
	if err := s.memory.Set(ctx, cartKey(c.ID), string(payload), s.ttl); err != nil {
		return &core.StoreError{
			Op:      "cart.save",
			Kind:    "cart",
			ID:      c.ID,
			Message: "failed to persist cart",
			Err:     err,
		}
	}
	return nil
}
