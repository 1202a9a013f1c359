package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic discovery bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Registration RegistrationConfig `yaml:"registration"`
	Database     DatabaseConfig     `yaml:"database"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	DeadLetter   DeadLetterConfig   `yaml:"dead_letter"`
	API          APIConfig          `yaml:"api"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
//
// Host may carry a scheme prefix (tcp://, ssl://, ws://, wss://, mqtt://, mqtts://).
// Without one, tcp is used, or ssl when TLS is set.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DiscoveryConfig controls the discovery window.
type DiscoveryConfig struct {
	// RootTopic is the discovery prefix, e.g. "homeassistant".
	RootTopic string `yaml:"root_topic"`

	// Window is how long after each connect inbound messages count as
	// discovery data. Retained config messages arrive in a burst right after
	// subscribing, so a few hundred milliseconds is enough.
	Window time.Duration `yaml:"window"`

	QoS int `yaml:"qos"`
}

// RegistrationConfig holds the descriptive metadata attached to every
// composite registration, plus the optional MQTT publication of registrations.
type RegistrationConfig struct {
	Vendor            string `yaml:"vendor"`
	Model             string `yaml:"model"`
	SerialPrefix      string `yaml:"serial_prefix"`
	FirmwareVersion   string `yaml:"firmware_version"`
	UseOriginMetadata bool   `yaml:"use_origin_metadata"`

	Publish RegistrationPublishConfig `yaml:"publish"`
}

// RegistrationPublishConfig controls publishing registrations back to the broker.
type RegistrationPublishConfig struct {
	Enabled     bool   `yaml:"enabled"`
	TopicPrefix string `yaml:"topic_prefix"`
	Codec       string `yaml:"codec"`
	Retain      bool   `yaml:"retain"`
}

// DatabaseConfig contains SQLite settings for the endpoint registry.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DeadLetterConfig configures the Kafka sink for rejected discovery payloads.
type DeadLetterConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_MQTT_HOST, GRAYLOGIC_DISCOVERY_ROOT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			RootTopic: "homeassistant",
			Window:    500 * time.Millisecond,
			QoS:       1,
		},
		Registration: RegistrationConfig{
			Vendor:          "Gray Logic",
			Model:           "Discovery Bridge",
			SerialPrefix:    "GLB-",
			FirmwareVersion: "1.0.0",
			Publish: RegistrationPublishConfig{
				TopicPrefix: "graylogic/bridge",
				Codec:       "json",
			},
		},
		Database: DatabaseConfig{
			Path:        "file:graylogic-bridge?mode=memory&cache=shared",
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		DeadLetter: DeadLetterConfig{
			Topic: "graylogic.discovery.rejected",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Discovery
	if v := os.Getenv("GRAYLOGIC_DISCOVERY_ROOT"); v != "" {
		cfg.Discovery.RootTopic = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// MQTT
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Discovery
	root := c.Discovery.RootTopic
	switch {
	case root == "":
		errs = append(errs, "discovery.root_topic is required")
	case strings.ContainsAny(root, "+#"):
		errs = append(errs, "discovery.root_topic must not contain wildcards")
	case strings.HasSuffix(root, "/"):
		errs = append(errs, "discovery.root_topic must not end with '/'")
	}
	if c.Discovery.Window <= 0 {
		errs = append(errs, "discovery.window must be positive")
	}
	if c.Discovery.QoS < 0 || c.Discovery.QoS > 2 {
		errs = append(errs, "discovery.qos must be 0, 1, or 2")
	}

	// Registration
	if c.Registration.Publish.Enabled {
		switch c.Registration.Publish.Codec {
		case "json", "cbor":
		default:
			errs = append(errs, "registration.publish.codec must be json or cbor")
		}
		if c.Registration.Publish.TopicPrefix == "" {
			errs = append(errs, "registration.publish.topic_prefix is required when publishing")
		}
	}

	// Database
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Dead letter
	if c.DeadLetter.Enabled {
		if len(c.DeadLetter.Brokers) == 0 {
			errs = append(errs, "dead_letter.brokers is required when dead_letter is enabled")
		}
		if c.DeadLetter.Topic == "" {
			errs = append(errs, "dead_letter.topic is required when dead_letter is enabled")
		}
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
