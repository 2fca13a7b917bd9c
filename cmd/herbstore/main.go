package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Stavickiy/internet-store/internal/cart"
	"github.com/Stavickiy/internet-store/internal/catalog"
	"github.com/Stavickiy/internet-store/internal/checkout"
	"github.com/Stavickiy/internet-store/internal/config"
	"github.com/Stavickiy/internet-store/internal/db"
	"github.com/Stavickiy/internet-store/internal/handler"
	"github.com/Stavickiy/internet-store/internal/notify"
	"github.com/Stavickiy/internet-store/internal/order"
	"github.com/Stavickiy/internet-store/internal/preorder"
	"github.com/Stavickiy/internet-store/internal/promo"
	"github.com/Stavickiy/internet-store/internal/transport"
)

const relayInterval = 2 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Info().Msg("Starting herbstore...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// catalog and promo read straight off the pool; write paths open their
	// own transactions inside the order/pre-order repositories
	products := catalog.NewRepository(pg.Pool)
	promoValidator := promo.NewValidator(promo.NewRepository(pg.Pool))

	carts := cart.NewAggregator(cart.NewRepository(pg.Pool), products, promoValidator)

	preorderCartRepo := preorder.NewCartRepository(pg.Pool)
	basket := preorder.NewBasket(preorderCartRepo, products)

	orderWizard := checkout.NewWizard(
		checkout.NewRedisStore(rdb, checkout.KeyOrderCheckout), carts)
	preorderWizard := checkout.NewWizard(
		checkout.NewRedisStore(rdb, checkout.KeyPreorderCheckout), basket)

	outbox := notify.NewOutbox(pg.Pool)

	orderRepo := order.NewRepository(pg.Pool, outbox)
	orderSvc := order.NewService(orderRepo, carts, orderWizard, cfg.SMTP.OperatorEmail)

	preorderRepo := preorder.NewRepository(pg.Pool, preorderCartRepo, outbox)
	preorderSvc := preorder.NewService(preorderRepo, basket, preorderWizard, cfg.SMTP.OperatorEmail)

	writer := notify.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
	defer writer.Close()

	relay := notify.NewRelay(outbox, writer, relayInterval)
	go relay.Run(ctx)

	router := transport.NewRouter(transport.Handlers{
		Catalog:          handler.NewCatalogHandler(products),
		Cart:             handler.NewCartHandler(carts, orderWizard),
		Checkout:         handler.NewCheckoutHandler(orderWizard),
		PreorderCheckout: handler.NewCheckoutHandler(preorderWizard),
		Order:            handler.NewOrderHandler(orderSvc),
		Preorder:         handler.NewPreorderHandler(preorderSvc, basket),
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Herbstore stopped gracefully.")
}
