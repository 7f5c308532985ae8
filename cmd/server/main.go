package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/config"
	"github.com/cinecriticas/store/internal/database"
	"github.com/cinecriticas/store/internal/handler"
	"github.com/cinecriticas/store/internal/logging"
	"github.com/cinecriticas/store/internal/middleware"
	"github.com/cinecriticas/store/internal/payment"
	"github.com/cinecriticas/store/internal/queue"
	"github.com/cinecriticas/store/internal/repository"
	"github.com/cinecriticas/store/internal/router"
	"github.com/cinecriticas/store/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, database.DialectMySQL); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	payCfg := config.LoadPaymentConfig()
	payments := payment.NewRegistry(payCfg.StrictMethods)
	payments.Register(payment.MethodCard, payment.NewHTTPGateway(payCfg.GatewayURL, payCfg.Timeout))
	payments.Register(payment.MethodPayPal, payment.NewHTTPGateway(payCfg.PayPalURL, payCfg.Timeout))

	queueCfg := config.LoadQueueConfig()
	var events service.EventPublisher
	if queueCfg.Enabled {
		events = queue.NewPublisher(queueCfg.URL, queueCfg.DialTimeout, logger.Named("queue"))
	}

	products := repository.NewProductRepo(db, repository.NewTitleRepo(db), logger.Named("products"))
	orders := service.NewOrderService(db, products, repository.NewOrderRepo(db), payments, events, logger.Named("orders"), payCfg.Currency)

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger.Named("http")))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db)), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewPublicHandler(products, repository.NewCategoryRepo(db)),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger.Named("cache")))
	router.RegisterOrders(e,
		handler.NewOrderHandler(orders, logger.Named("orders")),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit")))
	router.RegisterAdmin(e, handler.NewAdminProductHandler(products, logger.Named("admin")), cfg.JWTSecret)

	if queueCfg.ConsumerEnabled {
		consumer := queue.NewConsumer(queueCfg.URL, queueCfg.LogDir, logger.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("order consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
