// Package display expands configured homepage sections into concrete
// product lists. Sections are authored in the admin dashboard and
// resolved read-only here; resolution is a pure function of the section
// type plus a catalog query.
package display

import (
	"context"
	"sort"
	"time"

	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

const (
	// Section queries cap at a full page; the homepage never paginates
	// within a section.
	sectionPageSize = 100

	// New arrivals shows a shorter strip. Recency ordering is delegated
	// to the backend's default ordering.
	newArrivalsPageSize = 30
)

// Catalog is the slice of the catalog service the resolver needs.
type Catalog interface {
	ListProducts(ctx context.Context, filter catalog.ListFilter) []catalog.Product
	ListProductsByCategory(ctx context.Context, categoryID string, perPage int) []catalog.Product
	ListProductsByIDs(ctx context.Context, ids []string, perPage int) []catalog.Product
	ListSections(ctx context.Context, filter catalog.ListFilter) []catalog.DisplaySection
}

// Resolver maps display sections to product lists.
type Resolver struct {
	catalog Catalog
	logger  core.Logger
	now     func() time.Time
}

// ResolverOptions configures a Resolver. Catalog is required.
type ResolverOptions struct {
	Catalog Catalog
	Logger  core.Logger

	// Now overrides the clock for date-window checks. Tests only.
	Now func() time.Time
}

// NewResolver creates a section resolver over the catalog service.
func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{catalog: opts.Catalog, logger: opts.Logger, now: opts.Now}
}

// Resolve expands a section into its product list.
//
// When the backend already joined product data into the section, the
// embedded entries flagged active are used directly and no query is
// issued. Malformed sections (a category section without a category id,
// a custom section with no product ids) resolve to an empty list rather
// than an error: a misconfigured section disappears from the homepage
// instead of breaking it.
func (r *Resolver) Resolve(ctx context.Context, section catalog.DisplaySection) []catalog.Product {
	if embedded := activeEmbedded(section); embedded != nil {
		r.logger.Debug("Resolved section from embedded products", map[string]interface{}{
			"section_id": section.ID,
			"type":       string(section.Type),
			"count":      len(embedded),
		})
		return embedded
	}

	switch section.Type {
	case catalog.SectionTypeCategory:
		if section.CategoryID == "" {
			return []catalog.Product{}
		}
		return r.catalog.ListProductsByCategory(ctx, section.CategoryID, sectionPageSize)

	case catalog.SectionTypeCustom:
		if len(section.ProductIDs) == 0 {
			return []catalog.Product{}
		}
		return r.catalog.ListProductsByIDs(ctx, section.ProductIDs, sectionPageSize)

	case catalog.SectionTypeDiscounted:
		products := r.catalog.ListProducts(ctx, catalog.ListFilter{PerPage: sectionPageSize})
		discounted := make([]catalog.Product, 0, len(products))
		for _, p := range products {
			if p.HasDiscount() {
				discounted = append(discounted, p)
			}
		}
		return discounted

	case catalog.SectionTypeNewArrivals:
		return r.catalog.ListProducts(ctx, catalog.ListFilter{PerPage: newArrivalsPageSize})

	default:
		r.logger.Warn("Unknown section type, resolving empty", map[string]interface{}{
			"section_id": section.ID,
			"type":       string(section.Type),
		})
		return []catalog.Product{}
	}
}

// ResolvedSection pairs a section definition with its expanded products.
type ResolvedSection struct {
	Section  catalog.DisplaySection `json:"section"`
	Products []catalog.Product      `json:"products"`
}

// HomeSections lists the sections that should render right now (active
// and inside their date window), ordered by their order index, each
// expanded to its product list. Sections resolving to zero products are
// kept: hiding empties is a rendering decision, not a data one.
func (r *Resolver) HomeSections(ctx context.Context) []ResolvedSection {
	sections := r.catalog.ListSections(ctx, catalog.ListFilter{PerPage: sectionPageSize})
	now := r.now()

	visible := make([]catalog.DisplaySection, 0, len(sections))
	for _, s := range sections {
		if s.Active && s.InWindow(now) {
			visible = append(visible, s)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Order < visible[j].Order
	})

	resolved := make([]ResolvedSection, 0, len(visible))
	for _, s := range visible {
		resolved = append(resolved, ResolvedSection{
			Section:  s,
			Products: r.Resolve(ctx, s),
		})
	}
	return resolved
}

// activeEmbedded returns the active subset of the section's pre-joined
// products, or nil when the section carries no embedded data.
func activeEmbedded(section catalog.DisplaySection) []catalog.Product {
	if len(section.Products) == 0 {
		return nil
	}
	active := make([]catalog.Product, 0, len(section.Products))
	for _, sp := range section.Products {
		if sp.Active {
			active = append(active, sp.Product)
		}
	}
	return active
}
