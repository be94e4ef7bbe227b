package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the full API surface over the three handlers.
func NewRouter(auth *AuthHandler, buyer *BuyerHandler, seller *SellerHandler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", auth.Register)
			r.Post("/login", auth.Login)
			r.Put("/details", auth.UpdateDetails)
			r.Get("/check_user", auth.CheckUser)
		})

		r.Get("/products", buyer.ListProducts)
		r.Get("/products/{product_id}", buyer.GetProduct)

		r.Route("/buyers/{name}", func(r chi.Router) {
			r.Get("/cart", buyer.GetCart)
			r.Post("/cart", buyer.AddToCart)
			r.Delete("/cart/{product_id}", buyer.RemoveFromCart)
			r.Get("/balance", buyer.GetBalance)
			r.Post("/balance", buyer.AddBalance)
			r.Post("/order", buyer.PlaceOrder)
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Post("/products", seller.AddProduct)
			r.Put("/products/{product_id}", seller.UpdateProduct)
			r.Delete("/products/{product_id}", seller.DeleteProduct)
			r.Get("/{name}/products", seller.SellerProducts)
		})
	})

	return r
}
