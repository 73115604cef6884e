// telegramd decodes field-bus telegrams from EnOcean, DSMR and KNX
// transports and publishes the decoded channel values.
//
// Decoded values go to MQTT as retained state messages, numeric values to
// InfluxDB, and every telegram to a SQLite journal. Last-known state and
// learned devices survive restarts.
//
// The configuration file is configs/config.yaml unless TELEGRAMD_CONFIG
// names another.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-telegrams/migrations"

	"github.com/nerrad567/gray-logic-telegrams/internal/gateway"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/mqtt"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run returns nil on shutdown or when every transport has finished a
// replay.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting telegramd", "version", version, "commit", commit, "build_date", date)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"transports", len(cfg.Transports),
		"devices", len(cfg.Devices),
	)

	var shutdown closers
	defer shutdown.run(log)

	opts := gateway.ServiceOptions{Config: cfg, Version: version, Logger: log}

	db, err := openDatabase(ctx, cfg.Database, log, &shutdown)
	if err != nil {
		return err
	}
	if db != nil {
		opts.DB = db.DB
	}

	mqttClient, err := connectMQTT(cfg.MQTT, log, &shutdown)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		opts.MQTT = mqttClient
	}

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log, &shutdown)
	if err != nil {
		return err
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	svc, err := gateway.NewService(ctx, opts)
	if err != nil {
		return fmt.Errorf("building gateway: %w", err)
	}
	if err := svc.Run(ctx); err != nil {
		return err
	}
	log.Info("telegramd stopped")
	return nil
}

// closers runs shutdown steps in reverse order of registration.
type closers []func(*logging.Logger)

func (c *closers) add(name string, fn func() error) {
	*c = append(*c, func(log *logging.Logger) {
		log.Info("closing " + name)
		if err := fn(); err != nil {
			log.Error("error closing "+name, "error", err)
		}
	})
}

func (c closers) run(log *logging.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i](log)
	}
}

// openDatabase opens and migrates the SQLite store. It returns nil when the
// database is disabled.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger, shutdown *closers) (*database.DB, error) {
	if !cfg.Enabled {
		log.Info("database disabled, state and journal are not persisted")
		return nil, nil
	}
	db, err := database.Open(database.ConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	shutdown.add("database", db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())
	return db, nil
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger, shutdown *closers) (*mqtt.Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	shutdown.add("MQTT", client.Close)

	client.SetLogger(log)
	client.SetOnConnect(func() { log.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
		"topic_prefix", cfg.TopicPrefix,
	)
	return client, nil
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger, shutdown *closers) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	shutdown.add("InfluxDB", client.Close)

	client.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client, nil
}

func getConfigPath() string {
	if path := os.Getenv("TELEGRAMD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

type namedCheck struct {
	name  string
	check func(context.Context) error
}

// healthCheck checks each enabled connection; nil ones are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	var checks []namedCheck
	if db != nil {
		checks = append(checks, namedCheck{"database", db.HealthCheck})
	}
	if mqttClient != nil {
		checks = append(checks, namedCheck{"mqtt", mqttClient.HealthCheck})
	}
	if influxClient != nil {
		checks = append(checks, namedCheck{"influxdb", influxClient.HealthCheck})
	}
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}
