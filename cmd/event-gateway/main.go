// Command event-gateway is the composition root: it loads configuration,
// builds the configured storage and publisher backends, wires them into
// the gateway core, and serves the HTTP boundary until a shutdown signal
// arrives. Grounded on event-service/main.go's load-then-serve shape and
// original_source/src/main.rs's load_storage/load_publisher dispatch.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/httpapi"
	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/publisher"
	"github.com/lightsaway/event-gateway/internal/storage"
)

func loadStorage(ctx context.Context, cfg config.DatabaseConfig) (storage.Storage, error) {
	switch cfg.Type {
	case config.DatabaseFile:
		return storage.NewFileStorage(cfg.Path)
	case config.DatabaseInMemory:
		return storage.NewMemoryStorageFromJSON(cfg.InitialDataJSON)
	case config.DatabasePostgres:
		pg, err := storage.NewPostgresStorage(ctx, storage.PostgresConfig{
			Username: cfg.Username,
			Password: cfg.Password,
			Endpoint: cfg.Endpoint,
			DBName:   cfg.DBName,
		})
		if err != nil {
			return nil, err
		}

		var redisClient *redis.Client
		if addr := os.Getenv("APP_REDIS_ADDR"); addr != "" {
			redisClient = redis.NewClient(&redis.Options{Addr: addr})
		}

		refreshInterval := time.Duration(cfg.CacheRefreshIntervalSec) * time.Second
		return storage.NewCachedPostgresStorage(ctx, pg, refreshInterval, redisClient)
	default:
		return nil, &configError{msg: "unknown database type: " + string(cfg.Type)}
	}
}

func loadPublisher(cfg config.PublisherConfig) (publisher.Publisher, error) {
	switch cfg.Type {
	case config.PublisherKafka:
		return publisher.NewKafkaPublisher(cfg.Kafka), nil
	case config.PublisherMqtt:
		return publisher.NewMqttPublisher(cfg.Mqtt)
	case config.PublisherNoOp, "":
		return publisher.NewNoOpPublisher(), nil
	default:
		return nil, &configError{msg: "unknown publisher type: " + string(cfg.Type)}
	}
}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }

func run() error {
	configPath := os.Getenv("APP_CONFIG_PATH")
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if appCfg.DebugMode {
		logger.Init("debug", "text")
	} else {
		logger.Init("info", "json")
	}
	log := logger.GetLogger()
	log.WithField("database_type", appCfg.Database.Type).
		WithField("publisher_type", appCfg.Gateway.Publisher.Type).
		Info("loaded configuration")

	ctx := context.Background()

	store, err := loadStorage(ctx, appCfg.Database)
	if err != nil {
		return err
	}

	pub, err := loadPublisher(appCfg.Gateway.Publisher)
	if err != nil {
		return err
	}

	gwConfig := gateway.Config{
		SamplingEnabled:   appCfg.Gateway.SamplingEnabled,
		SamplingThreshold: appCfg.Gateway.SamplingThreshold,
	}

	var handler gateway.Handler
	if appCfg.Gateway.MetricsEnabled {
		handler = gateway.NewMetered(store, pub, gwConfig)
	} else {
		handler = gateway.New(store, pub, gwConfig)
	}

	server, err := httpapi.NewServer(appCfg, handler)
	if err != nil {
		return err
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server forced to shutdown")
	}
	if err := pub.Close(); err != nil {
		log.WithError(err).Warn("error closing publisher")
	}
	if err := store.Close(); err != nil {
		log.WithError(err).Warn("error closing storage")
	}
	log.Info("shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		logger.GetLogger().WithError(err).Fatal("event gateway failed to start")
	}
}
