package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-service/config"
	"ecommerce-service/internal/api"
	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/service"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/store/memstore"
	"ecommerce-service/internal/util"
	"ecommerce-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting e-commerce service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("ecommerce-service", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	uow, closeStore := openStore(cfg.Database, logger)
	defer closeStore()

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ItemTTL)
		if err != nil {
			logger.Warn("Redis unavailable, running without item cache and idempotency keys", zap.Error(err))
		} else {
			redisClient = rc
			defer redisClient.Close()
			logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
		defer producer.Close()
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicInventory))
	}
	eventPublisher := broker.NewEventPublisher(producer)

	categoryService := service.NewCategoryService(uow, redisClient)
	itemService := service.NewItemService(uow, redisClient, eventPublisher, service.ItemPaging{
		DefaultLimit: cfg.Business.ItemsDefaultLimit,
		MaxLimit:     cfg.Business.ItemsMaxLimit,
	})
	orderService := service.NewOrderService(uow, redisClient, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var inventoryWorker *worker.InventoryWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup)
		inventoryWorker = worker.NewInventoryWorker(consumer, redisClient, cfg.Business.LowStockThreshold)
		go func() {
			if err := inventoryWorker.Start(workerCtx); err != nil {
				logger.Error("Inventory worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(categoryService, itemService, orderService, uow)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if inventoryWorker != nil {
		if err := inventoryWorker.Stop(); err != nil {
			logger.Error("Error stopping inventory worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openStore picks the storage driver and returns it with its close func
func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (store.UnitOfWork, func()) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), func() {}
	}

	db, err := store.NewStore(cfg.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected")

	if cfg.AutoMigrate {
		if err := store.Migrate(db.GetDB().DB); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}
	}
}
