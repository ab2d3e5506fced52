package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"smepay_gateway/internal/config"
	"smepay_gateway/internal/repository"
	"smepay_gateway/internal/services"
	"smepay_gateway/internal/smepay"
	"smepay_gateway/internal/tasks"
	"smepay_gateway/internal/telemetry"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	if err := telemetry.Init("smepay-worker"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer telemetry.Sync()

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		telemetry.Logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if cfg.RedisURL == "" {
		telemetry.Logger.Fatal("REDIS_URL not set")
	}
	cache, err := services.NewRedisCache(cfg.RedisURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()

	orders := repository.NewOrderRepository(db)

	var publisher services.EventPublisher
	if cfg.KafkaBrokers != "" {
		kp := services.NewKafkaPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
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
	}

	// Initialize Task Registry
	tasks.DefineTasks()
	deps := &tasks.Deps{
		Orders:     orders,
		Gateways:   gateways,
		Reconciler: reconciler,
		SweepGrace: cfg.SweepGrace,
	}

	telemetry.Logger.Info("Worker started", zap.Duration("interval", cfg.SweepInterval))

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		telemetry.Logger.Info("Shutting down worker...")
		cancel()
	}()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run once on start, then on every tick.
	runSweep(ctx, deps)

	for {
		select {
		case <-ticker.C:
			runSweep(ctx, deps)
		case <-ctx.Done():
			return
		}
	}
}

func runSweep(ctx context.Context, deps *tasks.Deps) {
	handler, ok := tasks.GetHandler(tasks.TaskReconcilePendingPayments)
	if !ok {
		telemetry.Logger.Error("Task handler not found", zap.String("task", tasks.TaskReconcilePendingPayments))
		return
	}

	start := time.Now()
	result, err := handler(ctx, deps, nil)
	if err != nil {
		telemetry.Logger.Error("Sweep failed", zap.Error(err))
		return
	}
	telemetry.Logger.Info("Sweep completed",
		zap.Any("result", result),
		zap.Duration("runtime", time.Since(start)),
	)
}
