package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/o4o-platform/order-service/internal/cache"
	"github.com/o4o-platform/order-service/internal/commission"
	"github.com/o4o-platform/order-service/internal/config"
	"github.com/o4o-platform/order-service/internal/handlers"
	"github.com/o4o-platform/order-service/internal/repository"
	"github.com/o4o-platform/order-service/internal/service"
	sharedHTTP "github.com/o4o-platform/order-service/shared/http"
	"github.com/o4o-platform/order-service/shared/logger"
	"github.com/o4o-platform/order-service/shared/messaging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, config.ServiceName)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("order service starting", zap.String("store", cfg.StoreDriver))

	store, closeStore, err := initStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("store initialisation failed", zap.Error(err))
	}
	defer closeStore()

	c := initCache(cfg, zlog)
	defer cache.Close(c)

	var (
		publisher service.EventPublisher
		consumer  *messaging.Consumer
	)
	if cfg.RabbitMQEnabled {
		rabbitClient := messaging.NewRabbitMQClient(cfg.RabbitMQ, zlog)
		if err := rabbitClient.Connect(); err != nil {
			zlog.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer rabbitClient.Close()

		publisher = messaging.NewPublisher(rabbitClient, zlog)
		consumer = messaging.NewConsumer(rabbitClient, cfg.RabbitMQ.Queue, config.ServiceName, zlog)
	}

	policies := commission.NewCachedPolicySource(store.Policies(), c, cfg.Redis.CacheTTL, zlog)
	calculator := commission.NewCalculator(policies, cfg.Commission.Platform, zlog)

	orderService := service.NewOrderService(store, calculator, publisher, c, service.OrderServiceConfig{
		Pricing:  cfg.Pricing,
		StatsTTL: cfg.Redis.CacheTTL,
	}, zlog)
	partnerService := service.NewPartnerService(store, publisher, cfg.Commission.PartnerDefaultRate, zlog)

	app := setupFiberApp(zlog)
	handlers.RegisterRoutes(app,
		handlers.NewOrderHandler(orderService, partnerService, zlog),
		handlers.NewPartnerHandler(partnerService, zlog))

	if consumer != nil {
		eventHandler := handlers.NewEventHandler(orderService, partnerService, zlog)
		go func() {
			if err := eventHandler.StartConsuming(consumer); err != nil {
				zlog.Error("rabbitmq consumption error", zap.Error(err))
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		zlog.Info("order service shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("shutdown error", zap.Error(err))
		}
	}()

	zlog.Info("order service listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("server start error", zap.Error(err))
	}
}

// initStore opens the configured store and returns its release function.
func initStore(cfg *config.Config, zlog *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		zlog.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database open error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database ping error: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database migration error: %w", err)
	}

	zlog.Info("database connected", zap.String("database", cfg.Database.Name))
	return repository.NewPostgresStore(db), func() { db.Close() }, nil
}

// initCache falls back to the in-process cache when Redis is disabled or
// unreachable.
func initCache(cfg *config.Config, zlog *zap.Logger) cache.Cache {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(config.ServiceName)
	}

	c := cache.NewRedisCache(cfg.Redis.Addr, config.ServiceName)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cache.Ping(ctx, c); err != nil {
		zlog.Warn("redis unavailable, using in-memory cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		cache.Close(c)
		return cache.NewMemoryCache(config.ServiceName)
	}
	return c
}

func setupFiberApp(zlog *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Order Service v1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			zlog.Error("request error", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
			if code >= fiber.StatusInternalServerError {
				return sharedHTTP.InternalServerErrorResponse(c, "Internal Server Error", nil)
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-User-ID,X-User-Name,X-User-Role",
	}))

	return app
}
