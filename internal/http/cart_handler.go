package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/repository"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/service"
)

// CartService is what the handlers need from the service layer.
type CartService interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	FetchCart(ctx context.Context, userID string) (*domain.CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error)
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

type cartItemRequestDTO struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// envelope is the uniform response shape for every cart endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req cartItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid data provided!")
		return
	}

	cart, err := h.service.AddItem(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, cart)
}

func (h *CartHandler) FetchCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.service.FetchCart(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, view)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req cartItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid data provided!")
		return
	}

	view, err := h.service.UpdateQuantity(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "userId")
	productID := chi.URLParam(r, "productId")

	view, err := h.service.RemoveItem(ctx, userID, productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondSuccess(w, view)
}

func respondSuccess(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func respondFailure(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Message: message})
}

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// respondServiceError maps service errors onto the envelope with one
// status-code convention for all four operations: 400 for rejected
// input, 404 for anything that failed to resolve, 500 otherwise.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondFailure(w, http.StatusBadRequest, "Invalid data provided!")
	case errors.Is(err, service.ErrUserRequired):
		respondFailure(w, http.StatusBadRequest, "User id is required")
	case errors.Is(err, repository.ErrProductNotFound):
		respondFailure(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrCartNotFound):
		respondFailure(w, http.StatusNotFound, "Cart not found!")
	case errors.Is(err, repository.ErrItemNotFound):
		respondFailure(w, http.StatusNotFound, "Cart item not present")
	default:
		slog.Error("cart operation failed", "err", err)
		respondFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}
