package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *CartHandler, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/shop/cart", func(r chi.Router) {
		r.Post("/add", handler.AddItem)
		r.Get("/get/{userId}", handler.FetchCart)
		r.Put("/update-cart", handler.UpdateQuantity)
		r.Delete("/{userId}/{productId}", handler.RemoveItem)
	})

	return r
}
