package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
)

// Only the display fields the cart view needs.
var productProjection = bson.M{
	"image":     1,
	"title":     1,
	"price":     1,
	"salePrice": 1,
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection("products"),
	}
}

func (m *mongoProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// malformed id can never reference a product
		return nil, ErrProductNotFound
	}

	var product domain.Product
	err = m.collection.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(productProjection)).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return &product, nil
}

func (m *mongoProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue // dangling reference, caller prunes it
		}
		oids = append(oids, oid)
	}

	cursor, err := m.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(productProjection))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var product domain.Product
		if err := cursor.Decode(&product); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products[product.ID.Hex()] = product
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("product cursor error: %w", err)
	}

	return products, nil
}
