package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/service"
	"github.com/go-chi/chi/v5"
)

type BuyerHandler struct {
	accounts *service.AccountService
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewBuyerHandler(
	accounts *service.AccountService,
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	timeout time.Duration,
) *BuyerHandler {
	return &BuyerHandler{
		accounts: accounts,
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		timeout:  timeout,
	}
}

type AddToCartItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type AddToCartRequestDTO struct {
	ProductID string             `json:"product_id,omitempty"`
	Quantity  int32              `json:"quantity,omitempty"`
	Items     []AddToCartItemDTO `json:"items,omitempty"`
}

type AddBalanceRequestDTO struct {
	Amount float64 `json:"amount"`
}

func (h *BuyerHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.AllProducts(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *BuyerHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *BuyerHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	lines, err := h.cart.GetCart(ctx, buyer.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"buyer_name":  buyer.Name,
		"buyer_email": buyer.Email,
		"cart_count":  len(lines),
		"cart":        lines,
	})
}

func (h *BuyerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"buyer_name": buyer.Name,
		"balance":    buyer.Balance,
	})
}

func (h *BuyerHandler) AddBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddBalanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	balance, err := h.accounts.AddBalance(ctx, buyer.Email, req.Amount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{"balance": balance})
}

func (h *BuyerHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddToCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	requests := make([]service.AddRequest, 0, len(req.Items)+1)
	if req.ProductID != "" {
		requests = append(requests, service.AddRequest{ProductID: req.ProductID, Quantity: req.Quantity})
	}
	for _, item := range req.Items {
		requests = append(requests, service.AddRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if len(requests) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id or items required")
		return
	}

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	added, err := h.cart.AddToCart(ctx, buyer.Email, requests)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int{"added": added})
}

func (h *BuyerHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.cart.RemoveFromCart(ctx, buyer.Email, chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *BuyerHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	buyer, err := h.resolveBuyer(ctx, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.checkout.PlaceOrder(ctx, buyer.Email)
	if err != nil {
		log.Printf("order for %s failed (request-id %s): %v", buyer.Email, getRequestID(r.Context()), err)
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commit_id":     result.CommitID,
		"total_charged": result.TotalCharged,
		"line_count":    result.LineCount,
		"order_ids":     result.OrderIDs,
	})
}

func (h *BuyerHandler) resolveBuyer(ctx context.Context, name string) (*domain.Account, error) {
	return h.accounts.Resolve(ctx, name, domain.RoleBuyer)
}
