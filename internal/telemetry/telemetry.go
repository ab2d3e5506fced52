package telemetry

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger      *zap.Logger
	ServiceName string
)

// Init sets up the structured logger shared by the server and the worker.
func Init(serviceName string) error {
	ServiceName = serviceName

	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	Logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	Logger.Info("Telemetry initialized", zap.String("service", serviceName))
	return nil
}

// Sync flushes buffered log entries on shutdown.
func Sync() error {
	if Logger == nil {
		return nil
	}
	return Logger.Sync()
}
