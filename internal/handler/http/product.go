package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/httputil"
	"github.com/utafrali/CatalogGo/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	logger *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(logger *slog.Logger) *ProductHandler {
	return &ProductHandler{logger: logger}
}

// GetProductByName handles GET /api/v1/{backend}/products?name=X
func (h *ProductHandler) GetProductByName(w http.ResponseWriter, r *http.Request) {
	product, err := servicesFrom(r).Products.GetProductByName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/{backend}/products/all
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := servicesFrom(r).Products.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// CreateProduct handles POST /api/v1/{backend}/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var req domain.CreateProductInput
	if !decode(w, r, &req) {
		return
	}

	product, err := servicesFrom(r).Products.CreateProduct(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/{backend}/products. The id travels in
// the body.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var req domain.UpdateProductInput
	if !decode(w, r, &req) {
		return
	}

	product, err := servicesFrom(r).Products.UpdateProduct(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/{backend}/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := servicesFrom(r).Products.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id}})
}

// decode reads a JSON body into dst and validates it, writing a 400 and
// returning false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	if err := validator.Validate(dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
