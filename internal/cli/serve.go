package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/events"
	"github.com/mmynk/receiptsplit/internal/events/kafka"
	"github.com/mmynk/receiptsplit/internal/extraction"
	"github.com/mmynk/receiptsplit/internal/server"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/internal/storage/memory"
	"github.com/mmynk/receiptsplit/internal/storage/postgres"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
	"github.com/mmynk/receiptsplit/pkg/logging"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a TOML config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the web app, the Connect API and the receipt passthrough endpoint.

Settings come from defaults, the optional --config TOML file, a .env file
and the environment, later sources winning.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetupWith(logging.Options{Level: level, JSON: cfg.Log.JSON})
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Storage.Driver)

	sessionStore, closeSessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeSessions()
	logger.Info("Session store initialized", "backend", cfg.Session.Backend, "ttl", cfg.Session.TTL.Duration)

	var extractor service.Extractor
	if cfg.Extraction.APIKey != "" {
		extractor = extraction.New(extraction.Config{
			Endpoint: cfg.Extraction.Endpoint,
			APIKey:   cfg.Extraction.APIKey,
			Timeout:  cfg.Extraction.Timeout.Duration,
		})
	} else {
		logger.Warn("GEMINI_API_KEY not set, receipt photos must be entered manually")
	}

	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		logger.Info("Publishing bill events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}
	defer publisher.Close()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)
	authenticator := auth.NewPasswordAuthenticator(store)
	sessions := session.NewManager(sessionStore, cfg.Session.TTL.Duration)

	srv := server.New(cfg.Server, server.Deps{
		Bills:      service.NewBillService(sessions, store, extractor, publisher, logger),
		Auth:       service.NewAuthService(authenticator, jwtManager, store, logger),
		JWTManager: jwtManager,
		Extractor:  extractor,
		Logger:     logger,
	})
	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(cfg.DBPath)
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return session.NewRedisStore(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
