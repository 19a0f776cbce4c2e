package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers bundles the per-entity HTTP handlers mounted under /api/v1.
type Handlers struct {
	Stores   *StoreHandler
	Products *ProductHandler
	Orders   *OrderHandler
}

// RegisterRoutes mounts the API. Reads of the public catalog need no
// token; everything touching an actor runs behind authMw.
func RegisterRoutes(r chi.Router, h Handlers, authMw func(http.Handler) http.Handler) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.Stores.List)
			r.Get("/{id}", h.Stores.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Post("/", h.Stores.Create)
				r.Put("/{id}", h.Stores.Update)
				r.Get("/{id}/any", h.Stores.GetByIDIncludeDeleted)
				r.Patch("/{id}/activation", h.Stores.SetActivation)
				r.Delete("/{id}", h.Stores.Delete)
				r.Post("/{id}/restore", h.Stores.Restore)
				r.Delete("/{id}/purge", h.Stores.Purge)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{id}", h.Products.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(authMw)
				r.Post("/", h.Products.Create)
				r.Put("/{id}", h.Products.Update)
				r.Get("/{id}/any", h.Products.GetByIDIncludeDeleted)
				r.Patch("/{id}/stock", h.Products.UpdateStock)
				r.Delete("/{id}", h.Products.Delete)
				r.Post("/{id}/restore", h.Products.Restore)
				r.Delete("/{id}/purge", h.Products.Purge)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authMw)
			r.Post("/", h.Orders.Create)
			r.Get("/", h.Orders.ListByUser)
			r.Get("/{id}", h.Orders.GetByID)
			r.Delete("/{id}", h.Orders.Delete)
			r.Post("/{id}/restore", h.Orders.Restore)
			r.Delete("/{id}/purge", h.Orders.Purge)
		})
	})
}
