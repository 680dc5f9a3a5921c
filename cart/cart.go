// Package cart implements the shopping cart: an ordered collection of
// line items with derived monetary totals, persisted through a
// core.Memory store so carts survive restarts.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
)

// PackageInfo records the chosen bundle for package-type categories.
type PackageInfo struct {
	Size       int `json:"size"`
	TotalUnits int `json:"totalUnits"`
}

// Item is a single cart line: a product snapshot plus the shopper's
// choices. Quantity is always at least 1; removing the last unit removes
// the line entirely.
type Item struct {
	LineID          string              `json:"lineId"`
	Product         catalog.Product     `json:"product"`
	Quantity        int                 `json:"quantity"`
	FlavorID        string              `json:"flavorId,omitempty"`
	SelectedFlavors []catalog.Flavor    `json:"selectedFlavors,omitempty"`
	Package         *PackageInfo        `json:"package,omitempty"`
	SellingType     catalog.SellingType `json:"sellingType,omitempty"`
}

// LineSubtotal returns price × quantity for the line.
func (i *Item) LineSubtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineDiscount returns the absolute discount amount for the line, zero
// when the product carries no discount.
func (i *Item) LineDiscount() decimal.Decimal {
	if !i.Product.HasDiscount() {
		return decimal.Zero
	}
	return i.LineSubtotal().Mul(i.Product.Discount.Div(decimal.NewFromInt(100)))
}

// Totals are the derived monetary values, recomputed synchronously after
// every mutation.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Cart is the authoritative list of items a shopper intends to purchase.
// The Store exclusively owns carts; no other component mutates them.
type Cart struct {
	ID    string `json:"id"`
	Items []Item `json:"items"`
}

// NewCart creates an empty cart with a generated id.
func NewCart() *Cart {
	return &Cart{ID: uuid.New().String()}
}

// AddOptions carries the shopper's choices for AddItem.
type AddOptions struct {
	Quantity        int
	FlavorID        string
	SelectedFlavors []catalog.Flavor
	Package         *PackageInfo
	SellingType     catalog.SellingType
}

// AddItem adds a product to the cart and reports whether a new line was
// created (as opposed to merging into an existing one).
//
// Multi-flavor selections always append a distinct line: two bundles
// with different flavor mixes are not interchangeable, so they are never
// merged. Otherwise an existing line for the same product has its
// quantity incremented and its flavor/package choices overwritten.
func (c *Cart) AddItem(product catalog.Product, opts AddOptions) (created bool) {
	quantity := opts.Quantity
	if quantity < 1 {
		quantity = 1
	}

	if len(opts.SelectedFlavors) == 0 {
		for idx := range c.Items {
			if c.Items[idx].Product.ID == product.ID && len(c.Items[idx].SelectedFlavors) == 0 {
				c.Items[idx].Quantity += quantity
				c.Items[idx].FlavorID = opts.FlavorID
				c.Items[idx].Package = opts.Package
				if opts.SellingType != "" {
					c.Items[idx].SellingType = opts.SellingType
				}
				return false
			}
		}
	}

	c.Items = append(c.Items, Item{
		LineID:          uuid.New().String(),
		Product:         product,
		Quantity:        quantity,
		FlavorID:        opts.FlavorID,
		SelectedFlavors: opts.SelectedFlavors,
		Package:         opts.Package,
		SellingType:     opts.SellingType,
	})
	return true
}

// RemoveItem deletes all lines matching the product id and returns the
// removed items. An absent id removes nothing.
func (c *Cart) RemoveItem(productID string) []Item {
	var removed []Item
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.Product.ID == productID {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

// UpdateItemQuantity sets the matched lines' quantity exactly (not
// additive). Quantities below 1 are a no-op: the invariant is that
// stored quantities never drop below 1, and removal is an explicit
// operation. Returns true when a line was updated.
func (c *Cart) UpdateItemQuantity(productID string, quantity int) bool {
	if quantity < 1 {
		return false
	}

	updated := false
	for idx := range c.Items {
		if c.Items[idx].Product.ID == productID {
			c.Items[idx].Quantity = quantity
			updated = true
		}
	}
	return updated
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Totals recomputes the derived monetary values:
//
//	subtotal = Σ(price × quantity)
//	discount = Σ(price × quantity × discount/100) over discounted items
//	total    = subtotal − discount
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero

	for idx := range c.Items {
		subtotal = subtotal.Add(c.Items[idx].LineSubtotal())
		discount = discount.Add(c.Items[idx].LineDiscount())
	}

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}

// sanitize drops invalid lines from a hydrated cart and reports how many
// were dropped. Persisted data is not trusted: corrupted storage must
// not take the storefront down.
func (c *Cart) sanitize() int {
	kept := c.Items[:0]
	dropped := 0
	for _, item := range c.Items {
		if item.Product.ID == "" || item.Quantity < 1 {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return dropped
}
