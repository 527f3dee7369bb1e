package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartView is the denormalized response shape: cart metadata plus
// items joined with live product display fields. Only items whose
// product still resolves appear here.
type CartView struct {
	ID        primitive.ObjectID `json:"id,omitempty"`
	UserID    string             `json:"userId"`
	Items     []CartViewItem     `json:"items"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type CartViewItem struct {
	ProductID string  `json:"productId"`
	Image     string  `json:"image"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	SalePrice float64 `json:"salePrice"`
	Quantity  int     `json:"quantity"`
}
