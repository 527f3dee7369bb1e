package repository

import (
	"context"
	"errors"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrProductNotFound = errors.New("product not found")
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// AddItem merges by product: an existing entry gets its quantity
	// incremented, otherwise a new entry is appended. The cart
	// document is created on first add (get-or-create semantics).
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	// UpdateItemQuantity replaces the quantity of an existing entry.
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	// RemoveItem drops the entry for productID; removing a product
	// that is not in the cart is a no-op success.
	RemoveItem(ctx context.Context, userID, productID string) error
	// RemoveItems drops the entries for the given product IDs in one
	// update. Dangling-reference pruning goes through here so that
	// entries for products that still resolve are never touched.
	RemoveItems(ctx context.Context, userID string, productIDs []string) error
	// ReplaceItems overwrites the whole item list. Used by the
	// checkout consumer to empty a cart; the cart document itself is
	// never deleted.
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) error
}

// ProductRepository is the read contract against the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// FindByIDs resolves a batch of product IDs to their display
	// fields. IDs that do not resolve are simply absent from the map.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}
