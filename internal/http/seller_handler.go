package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/service"
	"github.com/go-chi/chi/v5"
)

type SellerHandler struct {
	accounts *service.AccountService
	catalog  *service.CatalogService
	timeout  time.Duration
}

func NewSellerHandler(accounts *service.AccountService, catalog *service.CatalogService, timeout time.Duration) *SellerHandler {
	return &SellerHandler{accounts: accounts, catalog: catalog, timeout: timeout}
}

type NewProductDTO struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
}

type AddProductsRequestDTO struct {
	SellerEmail string          `json:"seller_email"`
	Products    []NewProductDTO `json:"products"`
}

type UpdateProductRequestDTO struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SellerHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddProductsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SellerEmail == "" || len(req.Products) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "seller_email and products are required")
		return
	}

	if len(req.Products) == 1 {
		p := req.Products[0]
		product, err := h.catalog.AddProduct(ctx, req.SellerEmail, service.NewProduct{
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, product)
		return
	}

	items := make([]service.NewProduct, len(req.Products))
	for i, p := range req.Products {
		items[i] = service.NewProduct{Name: p.Name, Price: p.Price, Quantity: p.Quantity}
	}
	products, err := h.catalog.AddProducts(ctx, req.SellerEmail, items)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, products)
}

func (h *SellerHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.catalog.UpdateProductField(ctx, chi.URLParam(r, "product_id"), req.Field, req.Value); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *SellerHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *SellerHandler) SellerProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	seller, err := h.accounts.Resolve(ctx, chi.URLParam(r, "name"), domain.RoleSeller)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	products, err := h.catalog.SellerProducts(ctx, seller.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"seller_name":   seller.Name,
		"seller_email":  seller.Email,
		"product_count": len(products),
		"products":      products,
	})
}
