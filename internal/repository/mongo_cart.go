package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddItem performs the merge-add as two single-document updates, each
// atomic on the server, so concurrent adds for the same user cannot
// lose increments or duplicate an entry:
//
//  1. $inc the quantity of a matching array element, if one exists;
//  2. otherwise $push a new element, guarded by the product not being
//     present, with upsert creating the cart on first add.
//
// A concurrent add can invalidate either step: another request may
// create the cart first (the upsert collides with the unique user_id
// index) or append the same product between the two updates. Both
// collisions mean the document changed underneath us, so the pass is
// simply repeated against the new state; it converges because each
// retry starts from a cart that now exists.
func (m *mongoCartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	now := time.Now()
	item := domain.CartItem{
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   now,
	}

	for attempt := 0; attempt < 3; attempt++ {
		res, err := m.collection.UpdateOne(ctx, bson.M{
			"user_id":          userID,
			"items.product_id": productID,
		}, bson.M{
			"$inc": bson.M{"items.$.quantity": quantity},
			"$set": bson.M{"updated_at": now},
		})
		if err != nil {
			return fmt.Errorf("failed to increment item quantity: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		res, err = m.collection.UpdateOne(ctx, bson.M{
			"user_id":          userID,
			"items.product_id": bson.M{"$ne": productID},
		}, bson.M{
			"$push":        bson.M{"items": item},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}, options.Update().SetUpsert(true))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				// another request created the cart between the two
				// updates; re-run the pass against the existing doc
				continue
			}
			return fmt.Errorf("failed to append item: %w", err)
		}
		if res.MatchedCount > 0 || res.UpsertedCount > 0 {
			return nil
		}
	}

	return fmt.Errorf("failed to add item for user %s: too many concurrent updates", userID)
}

func (m *mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	filter := bson.M{
		"user_id":          userID,
		"items.product_id": productID,
	}

	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}

	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": productID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *mongoCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoCartRepository) RemoveItems(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": bson.M{"$in": productIDs}},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove items: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoCartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"updated_at": time.Now(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to replace items: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

// EnsureCartIndexes creates the unique user_id index the merge-add
// relies on: the guarded upsert in AddItem detects a concurrent
// append through the duplicate-key error this index produces.
func EnsureCartIndexes(ctx context.Context, db *mongo.Database) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := db.Collection("carts").Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}
