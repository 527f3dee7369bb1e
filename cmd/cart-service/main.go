package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	c "github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/cache"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/consumer"
	h "github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/http"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/repository"
	s "github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/internal/service"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/pkg/config"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/pkg/logger"
	"github.com/NguyenPhuc1008/MERN-Ecommerce/cart-service/pkg/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "cart-service",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error("failed to connect to MongoDB", "err", err)
		os.Exit(1)
	}
	if err := repository.EnsureCartIndexes(ctx, mongoDB); err != nil {
		log.Error("failed to create cart indexes", "err", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "uri", cfg.MongoURI, "db", cfg.MongoDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to ping Redis", "err", err)
		os.Exit(1)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	cartCache := c.NewRedisCache(redisClient)
	cartService := s.NewCartService(cartRepo, productRepo, cartCache)

	if len(cfg.KafkaBrokers) > 0 {
		checkout := consumer.NewConsumer(cartRepo, cartCache, log, cfg.KafkaBrokers...)
		defer checkout.Close()
		go checkout.Run(ctx)
		log.Info("checkout consumer started", "brokers", cfg.KafkaBrokers)
	}

	handler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	router := h.NewRouter(handler, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("cart service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down cart service")

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Error("mongo disconnect failed", "err", err)
	}

	log.Info("cart service stopped")
}
