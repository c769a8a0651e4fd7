package cliconfig

import (
	"time"

	"github.com/getmockd/mqttswarm/pkg/catalog"
)

// DefaultHost is the broker host workers connect to.
const DefaultHost = "localhost"

// DefaultPort is the standard MQTT port.
const DefaultPort = 1883

// DefaultKeepAlive is the MQTT keep-alive interval sent on connect.
const DefaultKeepAlive = 60 * time.Second

// DefaultClients is the number of worker processes a run spawns.
const DefaultClients = 20

// DefaultSpawnInterval is the pause after each spawn.
const DefaultSpawnInterval = time.Second

// DefaultInterruptGrace is the pause between an interrupt and the first worker signal.
const DefaultInterruptGrace = time.Second

// DefaultSignalInterval is the pause between worker signals after an interrupt.
const DefaultSignalInterval = time.Second

// DefaultSubscriptionTimeout bounds the wait for a SUBACK when waitForSubscription is set.
const DefaultSubscriptionTimeout = 5 * time.Second

// DefaultConnectTimeout bounds the wait for a CONNACK.
const DefaultConnectTimeout = 10 * time.Second

// DefaultPublishTimeout bounds the wait for a publish to reach the network.
const DefaultPublishTimeout = 5 * time.Second

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default log format.
const DefaultLogFormat = "text"

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		KeepAlive:           DefaultKeepAlive,
		Clients:             DefaultClients,
		SpawnInterval:       DefaultSpawnInterval,
		InterruptGrace:      DefaultInterruptGrace,
		SignalInterval:      DefaultSignalInterval,
		SubscribeTopic:      catalog.DefaultSubscribeTopic,
		SubscriptionTimeout: DefaultSubscriptionTimeout,
		ConnectTimeout:      DefaultConnectTimeout,
		PublishTimeout:      DefaultPublishTimeout,
		Catalog:             catalog.Default(),
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
		Sources:             make(map[string]string),
	}

	for _, key := range []string{
		"host", "port", "keepAlive", "clients", "spawnInterval", "interruptGrace",
		"signalInterval", "subscribeTopic", "qos", "waitForSubscription",
		"subscriptionTimeout", "connectTimeout", "publishTimeout", "catalog",
		"embeddedBroker", "logLevel", "logFormat",
	} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}
