package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second
	keepAlive        = 60 * time.Second

	// disconnectQuiesce is in milliseconds, as paho expects.
	disconnectQuiesce = 1000

	defaultReconnectDelay    = time.Second
	defaultMaxReconnectDelay = time.Minute

	maxQoS = 2

	// maxPayloadSize bounds a single message; state and health payloads
	// are a few hundred bytes.
	maxPayloadSize = 1 << 20
)

func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// reconnectDelays returns the first retry delay and the backoff cap,
// substituting defaults for unset values.
func reconnectDelays(r config.MQTTReconnectConfig) (initial, limit time.Duration) {
	initial, limit = defaultReconnectDelay, defaultMaxReconnectDelay
	if r.InitialDelay > 0 {
		initial = time.Duration(r.InitialDelay) * time.Second
	}
	if r.MaxDelay > 0 {
		limit = time.Duration(r.MaxDelay) * time.Second
	}
	if limit < initial {
		limit = initial
	}
	return initial, limit
}

// clientOptions maps the mqtt section of config.yaml onto paho options,
// including the retained Last Will on the status topic.
//
// Sessions are clean: subscriptions are restored by the client itself after
// every reconnect, and missed learn requests are not worth replaying.
func clientOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetWill(topics.Status(cfg.Broker.ClientID), string(lastWill(cfg.Broker.ClientID)), 1, true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	initial, limit := reconnectDelays(cfg.Reconnect)
	opts.SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(initial).
		SetMaxReconnectInterval(limit)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}
