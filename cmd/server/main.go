// Command server runs the marketplace transaction engine.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpapi "curio/internal/http"
	"curio/internal/identity"
	itemhandler "curio/internal/item/handler"
	itemservice "curio/internal/item/service"
	itemstore "curio/internal/item/store"
	listinghandler "curio/internal/listing/handler"
	listingmetrics "curio/internal/listing/metrics"
	listingservice "curio/internal/listing/service"
	listingstore "curio/internal/listing/store"
	"curio/internal/marketplace"
	"curio/internal/notification"
	notifhandler "curio/internal/notification/handler"
	notifmetrics "curio/internal/notification/metrics"
	notifstore "curio/internal/notification/store"
	"curio/internal/platform/config"
	"curio/internal/platform/httpserver"
	"curio/internal/platform/logger"
	"curio/internal/platform/metrics"
	"curio/internal/platform/postgres"
	platformredis "curio/internal/platform/redis"
	txnhandler "curio/internal/transaction/handler"
	txnmetrics "curio/internal/transaction/metrics"
	txnservice "curio/internal/transaction/service"
	txnstore "curio/internal/transaction/store"
	"curio/internal/transfer"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, notificationStore, uow, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sinks []notification.Sink
	if redisClient != nil {
		sinks = append(sinks, notification.NewRedisFanout(redisClient))
	}
	if len(cfg.Notification.KafkaBrokers) > 0 {
		kafkaSink, err := notification.NewKafkaSink(ctx, cfg.Notification.KafkaBrokers, cfg.Notification.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	dispatcher := notification.NewDispatcher(
		notificationStore, cfg.Notification.BufferSize,
		notifmetrics.New(), log, sinks...,
	)

	var views listingservice.ViewCounter
	if redisClient != nil {
		views = listingservice.NewRedisViewCounter(redisClient, stores.Listings, log)
	} else {
		views = listingservice.NewStoreViewCounter(stores.Listings, log)
	}

	jwtService := identity.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	itemSvc := itemservice.NewService(stores.Items)
	listingSvc := listingservice.NewService(stores.Listings, stores.Items, uow, views, listingmetrics.New())
	txnSvc := txnservice.NewService(
		stores.Transactions, stores.Listings, uow,
		transfer.NewExecutor(nil), dispatcher, txnmetrics.New(),
	)

	router := httpapi.NewRouter(log, metrics.New(),
		itemhandler.New(itemSvc, log, jwtService),
		listinghandler.New(listingSvc, log, jwtService),
		txnhandler.New(txnSvc, log, jwtService),
		notifhandler.New(notificationStore, log, jwtService),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStores selects the persistence profile. With a database URL the
// stores are postgres-backed and the unit of work is either a real SQL
// transaction or compare-and-swap passthrough depending on configuration.
// Without one everything is in memory, serialized per item.
func buildStores(cfg config.Config, log *slog.Logger) (marketplace.Stores, notifstore.Store, marketplace.UnitOfWork, func(), error) {
	if cfg.DatabaseURL == "" {
		stores := marketplace.Stores{
			Items:        itemstore.NewInMemory(),
			Listings:     listingstore.NewInMemory(),
			Transactions: txnstore.NewInMemory(),
		}
		log.Info("using in-memory stores")
		return stores, notifstore.NewInMemory(), marketplace.NewShardedUnitOfWork(stores), func() {}, nil
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return marketplace.Stores{}, nil, nil, nil, err
	}
	if err := postgres.Migrate(db, cfg.MigrationsPath); err != nil {
		db.Close()
		return marketplace.Stores{}, nil, nil, nil, err
	}

	stores := marketplace.Stores{
		Items:        itemstore.NewPostgres(db),
		Listings:     listingstore.NewPostgres(db),
		Transactions: txnstore.NewPostgres(db),
	}

	var uow marketplace.UnitOfWork
	if cfg.UseTransactions {
		log.Info("using postgres stores with transactions")
		uow = newMarketplacePostgresTx(db, stores)
	} else {
		log.Info("using postgres stores with optimistic guards")
		uow = marketplace.NewPassthroughUnitOfWork(stores)
	}
	return stores, notifstore.NewPostgres(db), uow, func() { db.Close() }, nil
}
