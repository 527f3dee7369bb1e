package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/cache"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/domain"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/repository"
)

// CartService implements the four cart operations. Cart reads go
// through the cache behind singleflight; every mutation invalidates
// the cached cart. Cache failures are logged and bypassed, never
// surfaced to callers.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
	}
}

// AddItem verifies the product exists, then merge-adds: an entry
// already in the cart gets its quantity incremented by the requested
// amount, otherwise a new entry is appended. The cart document is
// created on first add. Returns the raw persisted cart, without the
// product join.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if userID == "" || productID == "" || quantity <= 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return s.repo.GetCart(ctx, userID)
}

// FetchCart returns the cart joined with product display fields.
// Items whose product no longer resolves are dropped from the
// persisted list before the view is returned (self-healing read).
func (s *CartService) FetchCart(ctx context.Context, userID string) (*domain.CartView, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	cart, err := s.getCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.buildView(ctx, cart)
}

// UpdateQuantity sets the quantity of an existing entry to the given
// value (replace, not additive).
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error) {
	if userID == "" || productID == "" || quantity <= 0 {
		return nil, ErrInvalidInput
	}

	err := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	if errors.Is(err, repository.ErrItemNotFound) {
		// the single filtered update cannot tell a missing cart from
		// a missing item, so look the cart up to report the right one
		if _, errGet := s.repo.GetCart(ctx, userID); errGet != nil {
			return nil, errGet
		}
		return nil, repository.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// RemoveItem drops the entry for productID and returns the remaining
// cart joined with product fields. Removal matches on the stored
// product id, so an entry whose product was deleted from the catalog
// is still removable.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidInput
	}

	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}

	s.invalidate(userID)

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// getCart reads through the cache; singleflight collapses concurrent
// misses for the same user into one repository load.
func (s *CartService) getCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("cart cache get failed", "user_id", userID, "err", err)
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				slog.Warn("cart cache set failed", "user_id", userID, "err", errSet)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// buildView joins items with their product display fields. Items with
// a dangling product reference are excluded from the view and pruned
// from the persisted item list, so a later fetch is idempotent. The
// prune is a targeted removal of the dangling product ids only: the
// cart may have come from the cache and lag behind concurrent
// mutations, so writing back a whole item list derived from it could
// delete entries it never saw.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]domain.CartViewItem, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	var dangling []string
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			dangling = append(dangling, item.ProductID)
			continue
		}
		view.Items = append(view.Items, domain.CartViewItem{
			ProductID: item.ProductID,
			Image:     product.Image,
			Title:     product.Title,
			Price:     product.Price,
			SalePrice: product.SalePrice,
			Quantity:  item.Quantity,
		})
	}

	if len(dangling) > 0 {
		if err := s.repo.RemoveItems(ctx, cart.UserID, dangling); err != nil {
			return nil, err
		}
		s.invalidate(cart.UserID)
	}

	return view, nil
}

func (s *CartService) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.Warn("cart cache invalidate failed", "user_id", userID, "err", err)
	}
}
