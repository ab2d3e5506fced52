package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smepay_gateway/internal/config"
	"smepay_gateway/internal/handlers"
	"smepay_gateway/internal/middleware"
	"smepay_gateway/internal/repository"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
	"smepay_gateway/internal/telemetry"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	if err := telemetry.Init("smepay-gateway"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer telemetry.Sync()

	cfg := config.Load()

	// Initialize Database
	if cfg.DatabaseURL == "" {
		telemetry.Logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := services.AutoMigrate(db); err != nil {
		telemetry.Logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis (nonces and reconciliation locks)
	if cfg.RedisURL == "" {
		telemetry.Logger.Fatal("REDIS_URL not set")
	}
	cache, err := services.NewRedisCache(cfg.RedisURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()

	orders := repository.NewOrderRepository(db)

	// Optional Kafka status events
	var publisher services.EventPublisher
	if cfg.KafkaBrokers != "" {
		kp := services.NewKafkaPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	} else {
		telemetry.Logger.Info("KAFKA_BROKERS not set, status events disabled")
	}

	reconciler := services.NewReconciler(orders, services.NewRedisLocker(cache), publisher, cfg.CurrencySymbol)

	callbackURL := cfg.PublicBaseURL + "/webhook"
	gateways := make(map[string]*services.Gateway, len(cfg.Gateways))
	for _, gwCfg := range cfg.Gateways {
		client := smepay.NewClient(smepay.Options{
			Mode:         gwCfg.Mode,
			DisplayMode:  gwCfg.DisplayMode,
			ClientID:     gwCfg.ClientID,
			ClientSecret: gwCfg.ClientSecret,
		})
		gateways[gwCfg.ID] = services.NewGateway(gwCfg, client, orders, callbackURL, cfg.CurrencySymbol)
		telemetry.Logger.Info("Registered gateway",
			zap.String("gateway", gwCfg.ID),
			zap.String("mode", gwCfg.Mode),
			zap.Bool("available", gwCfg.Available()),
		)
	}

	h := &handlers.Handler{
		Orders:         orders,
		Gateways:       gateways,
		Nonces:         services.NewNonceStore(cache),
		Reconciler:     reconciler,
		BaseURL:        cfg.PublicBaseURL,
		CurrencySymbol: cfg.CurrencySymbol,
		DefaultLayout:  cfg.DefaultLayout,
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = middleware.JSONErrorHandler

	// Middleware
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Checkout flow
	e.POST("/api/checkout", h.Checkout)
	e.GET("/api/checkout/nonce", h.CheckoutNonce)
	e.POST("/api/orders", h.CreateOrder)
	e.GET("/api/orders/:id", h.GetOrder)
	e.POST("/api/orders/status", h.CheckOrderStatus)
	e.GET("/api/orders/:id/thank-you", h.ThankYou)

	// Provider callback
	e.POST("/webhook", h.Webhook)

	// Operational
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Start server with graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Server stopped", zap.Error(err))
		}
	}()
	telemetry.Logger.Info("Server started", zap.String("port", cfg.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Shutdown error", zap.Error(err))
	}
}
