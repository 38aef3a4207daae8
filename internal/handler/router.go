package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/food-admin/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware административной консоли.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.GetCategories)

		r.Route("/foods", func(r chi.Router) {
			r.Get("/", h.GetFoods)
			r.Post("/", h.AddFood)
			r.Post("/refresh", h.RefreshFoods)
			r.Post("/{id}/remove", h.RemoveFood)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.GetOrders)
			r.Post("/refresh", h.RefreshOrders)
			r.Post("/{id}/status", h.UpdateOrderStatus)
			r.Get("/{id}/history", h.GetOrderHistory)
		})
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
