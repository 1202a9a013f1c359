package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Bridge status payloads, Home Assistant availability style.
const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// schemeAliases maps accepted host prefixes to the schemes paho understands.
var schemeAliases = map[string]string{
	"tcp":   "tcp",
	"mqtt":  "tcp",
	"ssl":   "ssl",
	"tls":   "ssl",
	"mqtts": "ssl",
	"ws":    "ws",
	"wss":   "wss",
}

// BrokerURL builds the paho broker URL from configuration.
//
// The host may already carry a scheme ("mqtts://broker") and even a port
// ("ssl://broker:8883"); otherwise tcp is assumed, or ssl when TLS is set,
// and the configured port is appended.
func BrokerURL(broker config.MQTTBrokerConfig) (string, error) {
	host := strings.TrimSpace(broker.Host)
	if host == "" {
		return "", fmt.Errorf("%w: broker host is empty", ErrConnectionFailed)
	}

	scheme := "tcp"
	if broker.TLS {
		scheme = "ssl"
	}

	if prefix, rest, ok := strings.Cut(host, "://"); ok {
		mapped, known := schemeAliases[strings.ToLower(prefix)]
		if !known {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrConnectionFailed, prefix)
		}
		scheme = mapped
		host = rest
	}

	host = strings.TrimSuffix(host, "/")
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(broker.Port))
	}

	return scheme + "://" + host, nil
}

func usesTLS(brokerURL string) bool {
	return strings.HasPrefix(brokerURL, "ssl://") || strings.HasPrefix(brokerURL, "wss://")
}

// buildClientOptions creates paho options: broker URL, auth, ordered
// delivery, clean session and reconnect backoff.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	brokerURL, err := BrokerURL(cfg.Broker)
	if err != nil {
		// Config validation rejects an empty host; keep paho's default broker
		// so Connect reports the failure.
		brokerURL = fmt.Sprintf("tcp://localhost:%d", cfg.Broker.Port)
	}
	opts.AddBroker(brokerURL)

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Retained discovery config is redelivered on every subscribe, so no
	// broker-side session is needed.
	opts.SetCleanSession(true)

	// Discovery handling depends on arrival order.
	opts.SetOrderMatters(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS || usesTLS(brokerURL) {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureLWT makes the broker publish a retained "offline" on the bridge
// status topic if the client drops without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	opts.SetWill(Topics{}.BridgeStatus(cfg.Broker.ClientID), statusOffline, 1, true)
}
