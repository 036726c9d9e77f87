package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/akeren/waitlister-api/config"
	"github.com/akeren/waitlister-api/domain"
	"github.com/akeren/waitlister-api/internal/log"
	"github.com/akeren/waitlister-api/pkg/migrations"
	"github.com/akeren/waitlister-api/pkg/utils"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error

	switch args[0] {
	case "migrate":
		err = runMigrations(logger, func(ctx context.Context, cfg migrationsRun) error {
			return migrations.Up(ctx, cfg.db, cfg.config)
		})

	case "migrate-down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps < 1 {
				fmt.Fprintf(os.Stderr, "invalid step count: %s\n", args[1])
				os.Exit(1)
			}
		}
		err = runMigrations(logger, func(ctx context.Context, cfg migrationsRun) error {
			return migrations.Down(ctx, cfg.db, cfg.config, steps)
		})

	case "count":
		err = printCounts(logger)

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", "command", args[0], "error", err.Error())
		os.Exit(1)
	}
}

type migrationsRun struct {
	db     *sql.DB
	config migrations.Config
}

func runMigrations(logger *log.Logger, apply func(context.Context, migrationsRun) error) error {
	appConfig := config.NewAppConfig()
	if appConfig.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("SQL migrations require STORE_DRIVER=postgres; mongo indexes are ensured at startup")
	}

	db, err := config.NewDatabase(logger, &config.DBConfig{ConnectAttempts: appConfig.StoreConnectAttempts})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return apply(ctx, migrationsRun{
		db: sqlDB,
		config: migrations.Config{
			Dir:    utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"),
			Logger: logger,
		},
	})
}

func printCounts(logger *log.Logger) error {
	appConfig := &config.ApplicationConfig{
		Logger: logger,
		Config: config.NewAppConfig(),
	}
	defer appConfig.Cleanup()

	switch appConfig.Config.StoreDriver {
	case config.StoreDriverMongo:
		client, err := config.NewMongo(logger, config.NewMongoConfig(), appConfig.Config.StoreConnectAttempts)
		if err != nil {
			return err
		}
		appConfig.Mongo = client
	default:
		db, err := config.NewDatabase(logger, &config.DBConfig{ConnectAttempts: appConfig.Config.StoreConnectAttempts})
		if err != nil {
			return err
		}
		appConfig.DB = db
	}

	service, err := domain.NewWaitlistFactory(appConfig).CreateService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := service.Count(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate             Apply pending SQL migrations and exit")
	fmt.Println("  migrate-down [n]    Roll back the last n SQL migrations (default 1)")
	fmt.Println("  count               Print total, notified and not-notified waitlist counts")
}
