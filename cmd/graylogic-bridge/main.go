// Gray Logic Discovery Bridge
//
// graylogic-bridge listens to MQTT discovery config messages (as published
// by Zigbee2MQTT, ESPHome, Tasmota and similar gateways), groups the
// announced entities by physical device and registers each device as one
// composite endpoint with typed child capabilities.
//
// Usage:
//
//	GRAYLOGIC_BRIDGE_CONFIG=/etc/graylogic/bridge.yaml graylogic-bridge
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-bridge/migrations"

	"github.com/nerrad567/gray-logic-bridge/internal/api"
	"github.com/nerrad567/gray-logic-bridge/internal/bridges/hass"
	"github.com/nerrad567/gray-logic-bridge/internal/device"
	"github.com/nerrad567/gray-logic-bridge/internal/discovery"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/deadletter"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/bridge.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic discovery bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"root_topic", cfg.Discovery.RootTopic,
		"window", cfg.Discovery.Window,
	)

	// Endpoint registry
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("registry"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	// Transport. The adapter subscribes on every connect, so the client
	// must not restore subscriptions itself.
	mqttClient := mqtt.NewClient(cfg.MQTT)
	mqttClient.SetRestoreSubscriptions(false)
	mqttClient.SetLogger(log.Component("mqtt"))

	adapter, err := hass.NewAdapter(hass.AdapterOptions{
		Transport: mqttClient,
		RootTopic: cfg.Discovery.RootTopic,
		Window:    cfg.Discovery.Window,
		QoS:       byte(cfg.Discovery.QoS),
		Logger:    log.Component("adapter"),
	})
	if err != nil {
		return fmt.Errorf("creating adapter: %w", err)
	}

	registrar, err := buildRegistrar(cfg, registry, adapter)
	if err != nil {
		return err
	}

	// Optional metrics
	var metrics hass.MetricsRecorder
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	collector := discovery.NewCollector()
	collector.SetLogger(log.Component("collector"))

	// Optional dead-letter sink for rejected discovery payloads
	if cfg.DeadLetter.Enabled {
		dlq, dlqErr := deadletter.New(cfg.DeadLetter, log.Component("deadletter"))
		if dlqErr != nil {
			return fmt.Errorf("creating dead-letter writer: %w", dlqErr)
		}
		defer func() {
			if closeErr := dlq.Close(); closeErr != nil {
				log.Error("error closing dead-letter writer", "error", closeErr)
			}
		}()
		collector.SetRejecter(dlq)
		log.Info("dead-letter enabled", "topic", cfg.DeadLetter.Topic)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	orchestrator, err := hass.NewOrchestrator(hass.OrchestratorOptions{
		Registrar: registrar,
		Metadata: hass.Metadata{
			Vendor:            cfg.Registration.Vendor,
			Model:             cfg.Registration.Model,
			SerialPrefix:      cfg.Registration.SerialPrefix,
			FirmwareVersion:   cfg.Registration.FirmwareVersion,
			UseOriginMetadata: cfg.Registration.UseOriginMetadata,
		},
		Logger:  log.Component("orchestrator"),
		Metrics: metrics,
		Events:  hub,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	bridge, err := hass.NewBridge(hass.BridgeOptions{
		Orchestrator: orchestrator,
		RootTopic:    cfg.Discovery.RootTopic,
		Collector:    collector,
		Logger:       log.Component("bridge"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// Status API
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Registry:    registry,
			Status:      bridge,
			ExternalHub: hub,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	// Run before Connect so the first connection's window is observed.
	runErr := make(chan error, 1)
	go func() { runErr <- adapter.Run(ctx, bridge) }()

	if connectErr := adapter.Connect(); connectErr != nil {
		adapter.Disconnect() //nolint:errcheck // already failing
		<-runErr
		return fmt.Errorf("connecting to MQTT: %w", connectErr)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		adapter.Disconnect() //nolint:errcheck // already failing
		<-runErr
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	var stopErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
		if err := adapter.Disconnect(); err != nil {
			log.Warn("error disconnecting from MQTT", "error", err)
		}
		// Let an in-flight registration finish before the database closes.
		<-runErr
	case err := <-runErr:
		// Run only returns early if something else stopped the adapter.
		adapter.Disconnect() //nolint:errcheck // already stopping
		if err != nil && !errors.Is(err, context.Canceled) {
			stopErr = fmt.Errorf("adapter stopped: %w", err)
		}
	}
	if stopErr != nil {
		return stopErr
	}

	log.Info("Gray Logic discovery bridge stopped")
	return nil
}

// buildRegistrar returns the registration boundary: the registry, plus the
// MQTT registration publisher when enabled.
func buildRegistrar(cfg *config.Config, registry *device.Registry, pub device.Publisher) (device.Registrar, error) {
	registrars := device.Fanout{registry}

	if cfg.Registration.Publish.Enabled {
		prefix := cfg.Registration.Publish.TopicPrefix
		publisher, err := device.NewPublishRegistrar(
			pub,
			func(id string) string { return mqtt.Topics{}.Registration(prefix, id) },
			cfg.Registration.Publish.Codec,
			byte(cfg.MQTT.QoS),
			cfg.Registration.Publish.Retain,
		)
		if err != nil {
			return nil, fmt.Errorf("creating registration publisher: %w", err)
		}
		registrars = append(registrars, publisher)
	}

	return registrars, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_BRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_BRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when metrics are disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
