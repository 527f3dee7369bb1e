package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is the read-only catalog projection the cart joins against.
// Nothing in this service ever writes to the products collection.
type Product struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Image     string             `bson:"image" json:"image"`
	Title     string             `bson:"title" json:"title"`
	Price     float64            `bson:"price" json:"price"`
	SalePrice float64            `bson:"salePrice" json:"salePrice"`
}
