package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/cache"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/repository"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer empties a user's cart when their checkout completes. The
// item list is replaced with an empty one; the cart document itself
// is kept.
type Consumer struct {
	repo       repository.CartRepository
	cache      cache.CartCache
	reader     messageReader
	log        *slog.Logger
	retryDelay time.Duration
}

func NewConsumer(repo repository.CartRepository, cache cache.CartCache, log *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "cart-service-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		repo:       repo,
		cache:      cache,
		reader:     reader,
		log:        log,
		retryDelay: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("failed to read checkout message", "err", err)
			// a broker outage would otherwise spin this loop hot
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.emptyCart(ctx, m.Value)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("failed to close kafka reader", "err", err)
	}
}

func (c *Consumer) emptyCart(ctx context.Context, payload []byte) {
	var event map[string]interface{}
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Error("failed to parse checkout message", "err", err)
		return
	}

	userID, ok := event["user_id"].(string)
	if !ok || userID == "" {
		c.log.Error("checkout message missing user_id")
		return
	}

	err := c.repo.ReplaceItems(ctx, userID, nil)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		c.log.Error("failed to empty cart", "user_id", userID, "err", err)
		return
	}

	if err := c.cache.Delete(ctx, userID); err != nil {
		c.log.Error("failed to drop cached cart", "user_id", userID, "err", err)
	}
}
