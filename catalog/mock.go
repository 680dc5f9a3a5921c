package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockBackend is an in-memory stand-in for the bakery backend API. It
// speaks the same wire format as the real backend (list envelopes,
// multipart writes) and backs development mode and tests, where running
// the real API is not worth the trouble.
type MockBackend struct {
	mu       sync.RWMutex
	products map[string]Product
	// insertion order, backing the backend's default recency ordering
	productOrder []string
	categories   map[string]Category
	flavors      map[string]Flavor
	sections     map[string]DisplaySection

	mux *http.ServeMux
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	m := &MockBackend{
		products:   make(map[string]Product),
		categories: make(map[string]Category),
		flavors:    make(map[string]Flavor),
		sections:   make(map[string]DisplaySection),
		mux:        http.NewServeMux(),
	}

	m.mux.HandleFunc("GET /products", m.listProducts)
	m.mux.HandleFunc("POST /products", m.createProduct)
	m.mux.HandleFunc("GET /products/{id}", m.getProduct)
	m.mux.HandleFunc("PUT /products/{id}", m.updateProduct)
	m.mux.HandleFunc("DELETE /products/{id}", m.deleteProduct)

	m.mux.HandleFunc("GET /categories", m.listCategories)
	m.mux.HandleFunc("POST /categories", m.createCategory)
	m.mux.HandleFunc("PUT /categories/{id}", m.updateCategory)
	m.mux.HandleFunc("DELETE /categories/{id}", m.deleteCategory)

	m.mux.HandleFunc("GET /flavors", m.listFlavors)
	m.mux.HandleFunc("POST /flavors", m.createFlavor)
	m.mux.HandleFunc("PUT /flavors/{id}", m.updateFlavor)
	m.mux.HandleFunc("DELETE /flavors/{id}", m.deleteFlavor)

	m.mux.HandleFunc("GET /display-settings", m.listSections)
	m.mux.HandleFunc("POST /display-settings", m.createSection)
	m.mux.HandleFunc("PUT /display-settings/{id}", m.updateSection)
	m.mux.HandleFunc("DELETE /display-settings/{id}", m.deleteSection)

	return m
}

func (m *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// SeedProduct inserts a product, generating an id when absent.
func (m *MockBackend) SeedProduct(p Product) Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := m.products[p.ID]; !exists {
		m.productOrder = append(m.productOrder, p.ID)
	}
	m.products[p.ID] = p
	return p
}

// SeedCategory inserts a category, generating an id when absent.
func (m *MockBackend) SeedCategory(c Category) Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m.categories[c.ID] = c
	return c
}

// SeedFlavor inserts a flavor, generating an id when absent.
func (m *MockBackend) SeedFlavor(f Flavor) Flavor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	m.flavors[f.ID] = f
	return f
}

// SeedSection inserts a display section, generating an id when absent.
func (m *MockBackend) SeedSection(s DisplaySection) DisplaySection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	m.sections[s.ID] = s
	return s
}

func (m *MockBackend) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (m *MockBackend) notFound(w http.ResponseWriter) {
	m.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// paginate slices a full result set into the requested page and
// produces the envelope's pagination block.
func paginate(r *http.Request, total int) (start, end int, p Pagination) {
	filter := ListFilter{}
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil {
		filter.PerPage = v
	}
	filter = filter.normalize(10)

	start = (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end = start + filter.PerPage
	if end > total {
		end = total
	}

	totalPages := total / filter.PerPage
	if total%filter.PerPage != 0 {
		totalPages++
	}
	return start, end, Pagination{
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	}
}

func (m *MockBackend) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.ToLower(q.Get("name"))
	categoryID := q.Get("categoryId")
	ids := q["ids[]"]
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	m.mu.RLock()
	matched := make([]Product, 0, len(m.productOrder))
	// newest first: the backend's default ordering is recency
	for i := len(m.productOrder) - 1; i >= 0; i-- {
		p, ok := m.products[m.productOrder[i]]
		if !ok {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if categoryID != "" && !inCategory(p, categoryID) {
			continue
		}
		if len(idSet) > 0 && !idSet[p.ID] {
			continue
		}
		matched = append(matched, p)
	}
	m.mu.RUnlock()

	start, end, pagination := paginate(r, len(matched))
	m.writeJSON(w, http.StatusOK, ProductPage{Data: matched[start:end], Pagination: pagination})
}

func (m *MockBackend) getProduct(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	p, ok := m.products[r.PathValue("id")]
	m.mu.RUnlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusOK, p)
}

func (m *MockBackend) createProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := m.productFromForm(w, r, Product{ID: uuid.New().String()})
	if !ok {
		return
	}
	m.mu.Lock()
	m.products[p.ID] = p
	m.productOrder = append(m.productOrder, p.ID)
	m.mu.Unlock()
	m.writeJSON(w, http.StatusCreated, p)
}

func (m *MockBackend) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.RLock()
	existing, ok := m.products[id]
	m.mu.RUnlock()
	if !ok {
		m.notFound(w)
		return
	}
	p, ok := m.productFromForm(w, r, existing)
	if !ok {
		return
	}
	m.mu.Lock()
	m.products[id] = p
	m.mu.Unlock()
	m.writeJSON(w, http.StatusOK, p)
}

func (m *MockBackend) productFromForm(w http.ResponseWriter, r *http.Request, base Product) (Product, bool) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return Product{}, false
	}
	base.Name = r.FormValue("name")
	base.Description = r.FormValue("description")

	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return Product{}, false
	}
	base.Price = price

	base.Discount = nil
	if raw := r.FormValue("discount"); raw != "" {
		discount, err := decimal.NewFromString(raw)
		if err != nil {
			m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount"})
			return Product{}, false
		}
		base.Discount = &discount
	}

	base.Categories = m.resolveCategories(r.MultipartForm.Value["categoryIds"])
	base.FlavorID = r.FormValue("flavorId")
	if _, header, err := r.FormFile("image"); err == nil {
		base.ImageURL = "/uploads/" + header.Filename
	}
	return base, true
}

func (m *MockBackend) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.products[id]
	delete(m.products, id)
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusNoContent, nil)
}

func (m *MockBackend) listCategories(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	all := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		all = append(all, c)
	}
	m.mu.RUnlock()

	start, end, pagination := paginate(r, len(all))
	m.writeJSON(w, http.StatusOK, CategoryPage{Data: all[start:end], Pagination: pagination})
}

func (m *MockBackend) createCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	c := Category{
		ID:           uuid.New().String(),
		Name:         input.Name,
		SellingType:  input.SellingType,
		PackageSizes: input.PackageSizes,
	}
	m.mu.Lock()
	m.categories[c.ID] = c
	m.mu.Unlock()
	m.writeJSON(w, http.StatusCreated, c)
}

func (m *MockBackend) updateCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var input CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	m.mu.Lock()
	c, ok := m.categories[id]
	if ok {
		c.Name = input.Name
		c.SellingType = input.SellingType
		c.PackageSizes = input.PackageSizes
		m.categories[id] = c
	}
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusOK, c)
}

func (m *MockBackend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.categories[id]
	delete(m.categories, id)
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusNoContent, nil)
}

func (m *MockBackend) listFlavors(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("categoryId")

	m.mu.RLock()
	all := make([]Flavor, 0, len(m.flavors))
	for _, f := range m.flavors {
		if categoryID != "" && f.CategoryID != categoryID {
			continue
		}
		all = append(all, f)
	}
	m.mu.RUnlock()

	start, end, pagination := paginate(r, len(all))
	m.writeJSON(w, http.StatusOK, FlavorPage{Data: all[start:end], Pagination: pagination})
}

func (m *MockBackend) createFlavor(w http.ResponseWriter, r *http.Request) {
	f, ok := m.flavorFromForm(w, r, Flavor{ID: uuid.New().String()})
	if !ok {
		return
	}
	m.mu.Lock()
	m.flavors[f.ID] = f
	m.mu.Unlock()
	m.writeJSON(w, http.StatusCreated, f)
}

func (m *MockBackend) updateFlavor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.RLock()
	existing, ok := m.flavors[id]
	m.mu.RUnlock()
	if !ok {
		m.notFound(w)
		return
	}
	f, ok := m.flavorFromForm(w, r, existing)
	if !ok {
		return
	}
	m.mu.Lock()
	m.flavors[id] = f
	m.mu.Unlock()
	m.writeJSON(w, http.StatusOK, f)
}

func (m *MockBackend) flavorFromForm(w http.ResponseWriter, r *http.Request, base Flavor) (Flavor, bool) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form"})
		return Flavor{}, false
	}
	base.Name = r.FormValue("name")
	base.CategoryID = r.FormValue("categoryId")
	if _, header, err := r.FormFile("image"); err == nil {
		base.ImageURL = "/uploads/" + header.Filename
	}
	return base, true
}

func (m *MockBackend) deleteFlavor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.flavors[id]
	delete(m.flavors, id)
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusNoContent, nil)
}

func (m *MockBackend) listSections(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	all := make([]DisplaySection, 0, len(m.sections))
	for _, s := range m.sections {
		all = append(all, s)
	}
	m.mu.RUnlock()

	start, end, pagination := paginate(r, len(all))
	m.writeJSON(w, http.StatusOK, SectionPage{Data: all[start:end], Pagination: pagination})
}

func (m *MockBackend) createSection(w http.ResponseWriter, r *http.Request) {
	var input SectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s := sectionFromInput(DisplaySection{ID: uuid.New().String()}, input)
	m.mu.Lock()
	m.sections[s.ID] = s
	m.mu.Unlock()
	m.writeJSON(w, http.StatusCreated, s)
}

func (m *MockBackend) updateSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var input SectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		m.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	m.mu.Lock()
	s, ok := m.sections[id]
	if ok {
		s = sectionFromInput(s, input)
		m.sections[id] = s
	}
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusOK, s)
}

func sectionFromInput(base DisplaySection, input SectionInput) DisplaySection {
	base.Title = input.Title
	base.Type = input.Type
	base.CategoryID = input.CategoryID
	base.ProductIDs = input.ProductIDs
	base.Active = input.Active
	base.Order = input.Order
	base.StartDate = input.StartDate
	base.EndDate = input.EndDate
	base.Tags = input.Tags
	return base
}

func (m *MockBackend) deleteSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, ok := m.sections[id]
	delete(m.sections, id)
	m.mu.Unlock()
	if !ok {
		m.notFound(w)
		return
	}
	m.writeJSON(w, http.StatusNoContent, nil)
}

// resolveCategories expands form category ids (repeated fields or a
// single comma-joined value) into the seeded categories, keeping a
// bare id reference for unknown ones the way the real backend does.
func (m *MockBackend) resolveCategories(values []string) []Category {
	var resolved []Category
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			if id == "" {
				continue
			}
			if c, ok := m.categories[id]; ok {
				resolved = append(resolved, c)
			} else {
				resolved = append(resolved, Category{ID: id})
			}
		}
	}
	return resolved
}

func inCategory(p Product, categoryID string) bool {
	for _, c := range p.Categories {
		if c.ID == categoryID {
			return true
		}
	}
	return false
}
