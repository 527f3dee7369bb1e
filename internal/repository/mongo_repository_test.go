package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	err = EnsureCartIndexes(ctx, db)
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func seedProduct(t *testing.T, db *mongo.Database, title string) string {
	t.Helper()
	id := primitive.NewObjectID()
	_, err := db.Collection("products").InsertOne(context.Background(), bson.M{
		"_id":         id,
		"image":       "https://img.example.com/" + title + ".jpg",
		"title":       title,
		"description": "should not leak into the projection",
		"price":       100.0,
		"salePrice":   80.0,
	})
	require.NoError(t, err)
	return id.Hex()
}

func TestGetCart_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestAddItem_CreatesCartOnFirstAdd(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid := primitive.NewObjectID().Hex()

	err := repo.AddItem(ctx, "user123", pid, 3)
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", cart.UserID)
	assert.False(t, cart.CreatedAt.IsZero())
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pid, cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestAddItem_SameProduct_IncrementsQuantity(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid, 2))
	require.NoError(t, repo.AddItem(ctx, "user123", pid, 3))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "merge must not duplicate the entry")
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItem_DifferentProducts_AppendsInOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid1 := primitive.NewObjectID().Hex()
	pid2 := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid1, 1))
	require.NoError(t, repo.AddItem(ctx, "user123", pid2, 2))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, pid1, cart.Items[0].ProductID)
	assert.Equal(t, pid2, cart.Items[1].ProductID)
}

func TestAddItem_ConcurrentFirstAdds_DifferentProducts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()

	// all goroutines race to create the cart; the losers collide with
	// the unique user_id index and must still land their item
	const n = 8
	pids := make([]string, n)
	for i := range pids {
		pids[i] = primitive.NewObjectID().Hex()
	}

	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			errs <- repo.AddItem(ctx, "user123", pid, 1)
		}(pids[i])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, n)

	seen := make(map[string]bool, n)
	for _, item := range cart.Items {
		assert.Equal(t, 1, item.Quantity)
		seen[item.ProductID] = true
	}
	assert.Len(t, seen, n)
}

func TestAddItem_ConcurrentAdds_SameProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid := primitive.NewObjectID().Hex()

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.AddItem(ctx, "user123", pid, 1)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "concurrent merge-adds must not duplicate the entry")
	assert.Equal(t, n, cart.Items[0].Quantity, "no increment may be lost")
}

func TestUpdateItemQuantity_ReplacesValue(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid, 2))
	require.NoError(t, repo.UpdateItemQuantity(ctx, "user123", pid, 7))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestUpdateItemQuantity_ItemNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "user123", primitive.NewObjectID().Hex(), 2))

	err := repo.UpdateItemQuantity(ctx, "user123", primitive.NewObjectID().Hex(), 7)
	assert.ErrorIs(t, err, ErrItemNotFound)

	err = repo.UpdateItemQuantity(ctx, "ghost", primitive.NewObjectID().Hex(), 7)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_RemovesMatchingEntry(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid1 := primitive.NewObjectID().Hex()
	pid2 := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid1, 1))
	require.NoError(t, repo.AddItem(ctx, "user123", pid2, 2))

	require.NoError(t, repo.RemoveItem(ctx, "user123", pid1))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pid2, cart.Items[0].ProductID)
}

func TestRemoveItem_ProductNotInCart_NoOp(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid, 1))
	require.NoError(t, repo.RemoveItem(ctx, "user123", primitive.NewObjectID().Hex()))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestRemoveItem_CartNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	err := repo.RemoveItem(context.Background(), "ghost", primitive.NewObjectID().Hex())

	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestRemoveItems_DropsOnlyGivenIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid1 := primitive.NewObjectID().Hex()
	pid2 := primitive.NewObjectID().Hex()
	pid3 := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid1, 1))
	require.NoError(t, repo.AddItem(ctx, "user123", pid2, 2))
	require.NoError(t, repo.AddItem(ctx, "user123", pid3, 3))

	require.NoError(t, repo.RemoveItems(ctx, "user123", []string{pid1, pid3}))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pid2, cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	// no ids is a no-op, even without a cart
	assert.NoError(t, repo.RemoveItems(ctx, "ghost", nil))

	err = repo.RemoveItems(ctx, "ghost", []string{pid1})
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestReplaceItems_OverwritesList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	pid1 := primitive.NewObjectID().Hex()
	pid2 := primitive.NewObjectID().Hex()

	require.NoError(t, repo.AddItem(ctx, "user123", pid1, 1))
	require.NoError(t, repo.AddItem(ctx, "user123", pid2, 2))

	kept := []domain.CartItem{{ProductID: pid2, Quantity: 2}}
	require.NoError(t, repo.ReplaceItems(ctx, "user123", kept))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, pid2, cart.Items[0].ProductID)

	// nil empties the list without deleting the document
	require.NoError(t, repo.ReplaceItems(ctx, "user123", nil))
	cart, err = repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestReplaceItems_CartNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewMongoCartRepository(db)
	err := repo.ReplaceItems(context.Background(), "ghost", nil)

	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestFindByID_ReturnsProjection(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	products := NewMongoProductRepository(db)
	pid := seedProduct(t, db, "shoes")

	product, err := products.FindByID(context.Background(), pid)

	require.NoError(t, err)
	assert.Equal(t, pid, product.ID.Hex())
	assert.Equal(t, "shoes", product.Title)
	assert.Equal(t, 100.0, product.Price)
	assert.Equal(t, 80.0, product.SalePrice)
}

func TestFindByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	products := NewMongoProductRepository(db)

	_, err := products.FindByID(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrProductNotFound)

	// malformed ids can never reference a product
	_, err = products.FindByID(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFindByIDs_ResolvesSubset(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	products := NewMongoProductRepository(db)
	pid1 := seedProduct(t, db, "shoes")
	pid2 := seedProduct(t, db, "shirt")
	missing := primitive.NewObjectID().Hex()

	found, err := products.FindByIDs(context.Background(), []string{pid1, pid2, missing, "bad-id"})

	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "shoes", found[pid1].Title)
	assert.Equal(t, "shirt", found[pid2].Title)
	_, ok := found[missing]
	assert.False(t, ok)
}
