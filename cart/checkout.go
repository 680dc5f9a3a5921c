package cart

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// Checkout turns a cart into a WhatsApp deep link. There is no payment
// backend: handoff to the bakery happens as a pre-filled text message
// and no response is awaited.
type Checkout struct {
	number   string
	greeting string
}

// NewCheckout builds a checkout projector for the configured WhatsApp
// number and greeting line.
func NewCheckout(cfg core.CheckoutConfig) *Checkout {
	return &Checkout{number: cfg.WhatsAppNumber, greeting: cfg.Greeting}
}

// Summary renders a human-readable order message: greeting, one line per
// item with its choices, unit price, per-line discount and line total,
// then subtotal/discount/total. Amounts use two decimal places with a
// comma separator, matching Brazilian currency formatting.
func (ck *Checkout) Summary(c *Cart) string {
	var b strings.Builder

	b.WriteString(ck.greeting)
	b.WriteString("\n\n")

	for idx := range c.Items {
		item := &c.Items[idx]
		fmt.Fprintf(&b, "• %dx %s", item.Quantity, item.Product.Name)

		switch {
		case item.Package != nil:
			fmt.Fprintf(&b, " (caixa com %d", item.Package.Size)
			if item.Package.TotalUnits > item.Package.Size {
				fmt.Fprintf(&b, ", %d unidades", item.Package.TotalUnits)
			}
			b.WriteString(")")
		case item.SellingType == catalog.SellingTypeUnit:
			b.WriteString(" (unidade)")
		}
		if len(item.SelectedFlavors) > 0 {
			names := make([]string, len(item.SelectedFlavors))
			for i, flavor := range item.SelectedFlavors {
				names[i] = flavor.Name
			}
			fmt.Fprintf(&b, " - sabores: %s", strings.Join(names, ", "))
		}

		fmt.Fprintf(&b, " - R$ %s cada", formatAmount(item.Product.Price))
		if discount := item.LineDiscount(); discount.IsPositive() {
			fmt.Fprintf(&b, " - desconto R$ %s", formatAmount(discount))
		}
		fmt.Fprintf(&b, " - R$ %s\n", formatAmount(item.LineSubtotal().Sub(item.LineDiscount())))
	}

	totals := c.Totals()
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: R$ %s\n", formatAmount(totals.Subtotal))
	if totals.Discount.IsPositive() {
		fmt.Fprintf(&b, "Desconto: R$ %s\n", formatAmount(totals.Discount))
	}
	fmt.Fprintf(&b, "Total: R$ %s", formatAmount(totals.Total))

	return b.String()
}

// DeepLink returns the wa.me URL carrying the URL-encoded summary. An
// empty cart yields ErrEmptyCart so callers never hand off a blank
// order.
func (ck *Checkout) DeepLink(c *Cart) (string, error) {
	if c.IsEmpty() {
		return "", core.ErrEmptyCart
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", ck.number, url.QueryEscape(ck.Summary(c))), nil
}

func formatAmount(d decimal.Decimal) string {
	return strings.ReplaceAll(d.StringFixed(2), ".", ",")
}
