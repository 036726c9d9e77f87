package config

import (
	"context"
	"strings"
	"time"

	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/mongodb"
	"github.com/akeren/waitlister-api/pkg/retry"
	"github.com/akeren/waitlister-api/pkg/utils"
)

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

func NewMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:            envString("MONGO_URI", ""),
		Database:       envString("MONGO_DB_NAME", "waitlister"),
		ConnectTimeout: utils.GetEnvPositiveDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
	}
}

func (mc *MongoConfig) IsConfigured() bool {
	return strings.TrimSpace(mc.URI) != ""
}

// NewMongo connects to MongoDB, retrying transient failures up to attempts times.
func NewMongo(logger *log.Logger, cfg *MongoConfig, attempts int) (*mongodb.Client, error) {
	if cfg == nil || !cfg.IsConfigured() {
		logger.Error("Missing required MongoDB environment variables", "missing_vars", "MONGO_URI")
		return nil, ErrMongoNotConfigured
	}
	if attempts <= 0 {
		attempts = 1
	}

	backoff := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: attempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("MongoDB connection failed, retrying", "attempt", attempt, "delay", delay.String(), "error", err)
		},
	})

	var client *mongodb.Client
	err := backoff.Execute(context.Background(), func(ctx context.Context) error {
		c, err := mongodb.NewClient(ctx, mongodb.Config{
			URI:            cfg.URI,
			Database:       cfg.Database,
			ConnectTimeout: cfg.ConnectTimeout,
		})
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		return nil, err
	}

	logger.Info("MongoDB connected successfully", "database", cfg.Database)
	return client, nil
}

func CloseMongo(client *mongodb.Client, logger *log.Logger) {
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		logger.Error("Failed to disconnect MongoDB", "error", err)
		return
	}

	logger.Info("MongoDB disconnected successfully")
}

var ErrMongoNotConfigured = &StoreError{Message: "mongo store selected but MONGO_URI is not set"}

type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
