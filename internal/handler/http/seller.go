package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/httputil"
)

// SellerHandler handles HTTP requests for seller endpoints.
type SellerHandler struct {
	logger *slog.Logger
}

// NewSellerHandler creates a new seller HTTP handler.
func NewSellerHandler(logger *slog.Logger) *SellerHandler {
	return &SellerHandler{logger: logger}
}

// ListSellers handles GET /api/v1/{backend}/sellers[?first_name=X]
func (h *SellerHandler) ListSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := servicesFrom(r).Sellers.ListSellers(r.Context(), r.URL.Query().Get("first_name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sellers})
}

// CreateSeller handles POST /api/v1/{backend}/sellers
func (h *SellerHandler) CreateSeller(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)

	var req domain.CreateSellerInput
	if !decode(w, r, &req) {
		return
	}

	seller, err := servicesFrom(r).Sellers.CreateSeller(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: seller})
}

// GetSeller handles GET /api/v1/{backend}/sellers/{id}
func (h *SellerHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	seller, err := servicesFrom(r).Sellers.GetSeller(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: seller})
}
