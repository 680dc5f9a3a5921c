package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SellingType describes how products in a category are sold.
type SellingType string

const (
	// SellingTypeUnit sells products individually.
	SellingTypeUnit SellingType = "unit"
	// SellingTypePackage sells products in fixed-size bundles.
	SellingTypePackage SellingType = "package"
)

// Product is a catalog product. Products are immutable once fetched;
// refreshed copies come from a new query.
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"` // percentage, 0-100
	ImageURL    string           `json:"imageUrl,omitempty"`
	Categories  []Category       `json:"categories,omitempty"`
	FlavorID    string           `json:"flavorId,omitempty"`
}

// HasDiscount reports whether the product carries a positive discount.
func (p *Product) HasDiscount() bool {
	return p.Discount != nil && p.Discount.IsPositive()
}

// Category groups products and defines their selling type.
type Category struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	SellingType  SellingType `json:"sellingType,omitempty"`
	PackageSizes []int       `json:"packageSizes,omitempty"`
	Flavors      []Flavor    `json:"flavors,omitempty"`
}

// Flavor is a named variant attribute attachable to products within
// package categories.
type Flavor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

// SectionType enumerates the homepage display-section kinds.
type SectionType string

const (
	SectionTypeCategory    SectionType = "category"
	SectionTypeCustom      SectionType = "custom"
	SectionTypeDiscounted  SectionType = "discounted"
	SectionTypeNewArrivals SectionType = "new_arrivals"
)

// SectionProduct is a product pre-joined into a display section by the
// backend, carrying its own active flag.
type SectionProduct struct {
	Product
	Active bool `json:"active"`
}

// DisplaySection is a configurable homepage product grouping. Sections
// are created and reordered through the admin dashboard and resolved
// read-only by the storefront.
type DisplaySection struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Type       SectionType      `json:"type"`
	CategoryID string           `json:"categoryId,omitempty"`
	ProductIDs []string         `json:"productIds,omitempty"`
	Active     bool             `json:"active"`
	Order      int              `json:"order"`
	StartDate  *time.Time       `json:"startDate,omitempty"`
	EndDate    *time.Time       `json:"endDate,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
	Products   []SectionProduct `json:"products,omitempty"`
}

// InWindow reports whether the section is inside its optional start/end
// date window at the given instant.
func (s *DisplaySection) InWindow(now time.Time) bool {
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	return true
}

// Pagination is the backend's paging metadata.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// ProductPage is the paginated envelope for product listings.
type ProductPage struct {
	Data       []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CategoryPage is the paginated envelope for category listings.
type CategoryPage struct {
	Data       []Category `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// FlavorPage is the paginated envelope for flavor listings.
type FlavorPage struct {
	Data       []Flavor   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// SectionPage is the paginated envelope for display-section listings.
type SectionPage struct {
	Data       []DisplaySection `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ListFilter carries the query parameters supported by the backend list
// endpoints. The zero value lists the first page with the default size.
type ListFilter struct {
	Page       int
	PerPage    int
	Name       string
	CategoryID string
	IDs        []string
}

// normalize applies the default page size and sorts the id list so that
// equivalent filters produce identical cache keys.
func (f ListFilter) normalize(defaultPerPage int) ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if len(f.IDs) > 0 {
		ids := make([]string, len(f.IDs))
		copy(ids, f.IDs)
		sort.Strings(ids)
		f.IDs = ids
	}
	return f
}

// Values encodes the filter as backend query parameters.
func (f ListFilter) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if f.Name != "" {
		v.Set("name", f.Name)
	}
	if f.CategoryID != "" {
		v.Set("categoryId", f.CategoryID)
	}
	for _, id := range f.IDs {
		v.Add("ids[]", id)
	}
	return v
}

// CacheKey returns the normalized cache key for the filter.
// url.Values.Encode sorts by key, so equal filters always collide.
func (f ListFilter) CacheKey() string {
	return f.Values().Encode()
}

// Resource identifies a backend resource and its cache partition.
type Resource string

const (
	ResourceProducts   Resource = "products"
	ResourceCategories Resource = "categories"
	ResourceFlavors    Resource = "flavors"
	ResourceSections   Resource = "display-settings"
)

// Path returns the backend URL path for the resource.
func (r Resource) Path() string {
	return "/" + string(r)
}

// String implements fmt.Stringer.
func (r Resource) String() string {
	return string(r)
}

// ImageUpload carries an optional image file for multipart writes.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// ProductInput is the payload for product create/update operations.
// Writes use multipart form encoding so the image travels with the data.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Discount    *decimal.Decimal
	CategoryIDs []string
	FlavorID    string
	Image       *ImageUpload
}

// formValues encodes the input's scalar fields for the multipart form.
func (in ProductInput) formValues() map[string]string {
	fields := map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"price":       in.Price.String(),
	}
	if in.Discount != nil {
		fields["discount"] = in.Discount.String()
	}
	if len(in.CategoryIDs) > 0 {
		fields["categoryIds"] = strings.Join(in.CategoryIDs, ",")
	}
	if in.FlavorID != "" {
		fields["flavorId"] = in.FlavorID
	}
	return fields
}

// FlavorInput is the payload for flavor create/update operations.
type FlavorInput struct {
	Name       string
	CategoryID string
	Image      *ImageUpload
}

func (in FlavorInput) formValues() map[string]string {
	fields := map[string]string{"name": in.Name}
	if in.CategoryID != "" {
		fields["categoryId"] = in.CategoryID
	}
	return fields
}

// CategoryInput is the payload for category create/update operations.
type CategoryInput struct {
	Name         string      `json:"name"`
	SellingType  SellingType `json:"sellingType,omitempty"`
	PackageSizes []int       `json:"packageSizes,omitempty"`
}

// SectionInput is the payload for display-section create/update
// operations.
type SectionInput struct {
	Title      string      `json:"title"`
	Type       SectionType `json:"type"`
	CategoryID string      `json:"categoryId,omitempty"`
	ProductIDs []string    `json:"productIds,omitempty"`
	Active     bool        `json:"active"`
	Order      int         `json:"order"`
	StartDate  *time.Time  `json:"startDate,omitempty"`
	EndDate    *time.Time  `json:"endDate,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}
