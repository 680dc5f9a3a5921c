package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m4rrec0s/lna-doceria-storefront/cart"
	"github.com/m4rrec0s/lna-doceria-storefront/catalog"
	"github.com/m4rrec0s/lna-doceria-storefront/core"
)

// maxUploadBytes bounds multipart bodies for product/flavor images.
const maxUploadBytes = 10 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": s.config.Name,
		"version": core.Version,
		"cache":   s.catalog.CacheStats(),
	})
}

// listResponse is the storefront list envelope. Error carries the last
// recorded fetch failure for the resource; the data list is still
// present (possibly empty) so clients always have something to render.
type listResponse struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`
}

func listFilterFromQuery(r *http.Request) catalog.ListFilter {
	q := r.URL.Query()
	filter := catalog.ListFilter{
		Name:       q.Get("name"),
		CategoryID: q.Get("categoryId"),
		IDs:        q["ids[]"],
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil {
		filter.PerPage = perPage
	}
	return filter
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products := s.catalog.ListProducts(r.Context(), listFilterFromQuery(r))
	s.writeJSON(w, http.StatusOK, listResponse{
		Data:  products,
		Error: s.catalog.LastError(catalog.ResourceProducts),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.catalog.ListCategories(r.Context(), listFilterFromQuery(r))
	s.writeJSON(w, http.StatusOK, listResponse{
		Data:  categories,
		Error: s.catalog.LastError(catalog.ResourceCategories),
	})
}

func (s *Server) handleListFlavors(w http.ResponseWriter, r *http.Request) {
	flavors := s.catalog.ListFlavors(r.Context(), listFilterFromQuery(r))
	s.writeJSON(w, http.StatusOK, listResponse{
		Data:  flavors,
		Error: s.catalog.LastError(catalog.ResourceFlavors),
	})
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	sections := s.catalog.ListSections(r.Context(), listFilterFromQuery(r))
	s.writeJSON(w, http.StatusOK, listResponse{
		Data:  sections,
		Error: s.catalog.LastError(catalog.ResourceSections),
	})
}

func (s *Server) handleHomeSections(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, listResponse{
		Data:  s.resolver.HomeSections(r.Context()),
		Error: s.catalog.LastError(catalog.ResourceSections),
	})
}

// --- Cart ---

type cartResponse struct {
	Cart   *cart.Cart  `json:"cart"`
	Totals cart.Totals `json:"totals"`
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": uuid.New().String()})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c := s.carts.Get(r.Context(), r.PathValue("cartId"))
	s.writeJSON(w, http.StatusOK, cartResponse{Cart: c, Totals: c.Totals()})
}

type addItemRequest struct {
	Product         catalog.Product     `json:"product"`
	Quantity        int                 `json:"quantity"`
	FlavorID        string              `json:"flavorId"`
	SelectedFlavors []catalog.Flavor    `json:"selectedFlavors"`
	Package         *cart.PackageInfo   `json:"package"`
	SellingType     catalog.SellingType `json:"sellingType"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Product.ID == "" {
		s.writeError(w, &core.StoreError{
			Op:      "server.addItem",
			Message: "product id is required",
			Err:     core.ErrInvalidRequest,
		})
		return
	}

	c, err := s.carts.AddItem(r.Context(), r.PathValue("cartId"), req.Product, cart.AddOptions{
		Quantity:        req.Quantity,
		FlavorID:        req.FlavorID,
		SelectedFlavors: req.SelectedFlavors,
		Package:         req.Package,
		SellingType:     req.SellingType,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cartResponse{Cart: c, Totals: c.Totals()})
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	// Quantities below 1 are a persisted no-op, not an error; the
	// current cart comes back either way.
	c, err := s.carts.UpdateItemQuantity(r.Context(), r.PathValue("cartId"), r.PathValue("productId"), req.Quantity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cartResponse{Cart: c, Totals: c.Totals()})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := s.carts.RemoveItem(r.Context(), r.PathValue("cartId"), r.PathValue("productId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cartResponse{Cart: c, Totals: c.Totals()})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.carts.Clear(r.Context(), r.PathValue("cartId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cartResponse{Cart: c, Totals: c.Totals()})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	c := s.carts.Get(r.Context(), r.PathValue("cartId"))
	link, err := s.checkout.DeepLink(c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"url":     link,
		"message": s.checkout.Summary(c),
	})
}

// --- Auth gate endpoints ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Credential verification belongs to the backend; this endpoint just
	// anchors the gate's redirect target.
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "authenticate against the backend and retry with a token",
	})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Name,
		"cache":   s.catalog.CacheStats(),
		"errors": map[string]string{
			"products":         s.catalog.LastError(catalog.ResourceProducts),
			"categories":       s.catalog.LastError(catalog.ResourceCategories),
			"flavors":          s.catalog.LastError(catalog.ResourceFlavors),
			"display-settings": s.catalog.LastError(catalog.ResourceSections),
		},
	})
}

// --- Admin writes ---

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	input, err := productInputFromForm(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	product, err := s.catalog.CreateProduct(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	input, err := productInputFromForm(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	product, err := s.catalog.UpdateProduct(r.Context(), r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var input catalog.CategoryInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	category, err := s.catalog.CreateCategory(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input catalog.CategoryInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	category, err := s.catalog.UpdateCategory(r.Context(), r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateFlavor(w http.ResponseWriter, r *http.Request) {
	input, err := flavorInputFromForm(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	flavor, err := s.catalog.CreateFlavor(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, flavor)
}

func (s *Server) handleUpdateFlavor(w http.ResponseWriter, r *http.Request) {
	input, err := flavorInputFromForm(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	flavor, err := s.catalog.UpdateFlavor(r.Context(), r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, flavor)
}

func (s *Server) handleDeleteFlavor(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteFlavor(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var input catalog.SectionInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	section, err := s.catalog.CreateSection(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, section)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var input catalog.SectionInput
	if err := decodeJSON(r, &input); err != nil {
		s.writeError(w, err)
		return
	}
	section, err := s.catalog.UpdateSection(r.Context(), r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteSection(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

// --- Multipart decoding ---

func invalidForm(op, message string) error {
	return &core.StoreError{Op: op, Message: message, Err: core.ErrInvalidRequest}
}

func productInputFromForm(r *http.Request) (catalog.ProductInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return catalog.ProductInput{}, invalidForm("server.productForm", "invalid multipart form")
	}

	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return catalog.ProductInput{}, invalidForm("server.productForm", "invalid price")
	}

	input := catalog.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		CategoryIDs: r.MultipartForm.Value["categoryIds"],
		FlavorID:    r.FormValue("flavorId"),
	}
	if input.Name == "" {
		return catalog.ProductInput{}, invalidForm("server.productForm", "name is required")
	}

	if raw := r.FormValue("discount"); raw != "" {
		discount, err := decimal.NewFromString(raw)
		if err != nil || discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
			return catalog.ProductInput{}, invalidForm("server.productForm", "discount must be between 0 and 100")
		}
		input.Discount = &discount
	}

	image, err := imageFromForm(r)
	if err != nil {
		return catalog.ProductInput{}, err
	}
	input.Image = image
	return input, nil
}

func flavorInputFromForm(r *http.Request) (catalog.FlavorInput, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return catalog.FlavorInput{}, invalidForm("server.flavorForm", "invalid multipart form")
	}

	input := catalog.FlavorInput{
		Name:       r.FormValue("name"),
		CategoryID: r.FormValue("categoryId"),
	}
	if input.Name == "" {
		return catalog.FlavorInput{}, invalidForm("server.flavorForm", "name is required")
	}

	image, err := imageFromForm(r)
	if err != nil {
		return catalog.FlavorInput{}, err
	}
	input.Image = image
	return input, nil
}

func imageFromForm(r *http.Request) (*catalog.ImageUpload, error) {
	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, invalidForm("server.imageForm", "invalid image upload")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, invalidForm("server.imageForm", "failed to read image upload")
	}
	return &catalog.ImageUpload{Filename: header.Filename, Content: content}, nil
}
