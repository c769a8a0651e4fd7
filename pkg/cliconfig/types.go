// Package cliconfig provides configuration types and loading for the mqttswarm CLI.
package cliconfig

import (
	"time"

	"github.com/getmockd/mqttswarm/pkg/catalog"
)

// Config is the complete configuration for a swarm run.
// Values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Explicit --config file, or local config file (.mqttswarm.yaml in the current directory)
// 4. Global config file (~/.config/mqttswarm/config.yaml)
// 5. Default values (lowest priority)
type Config struct {
	// Broker connection
	Host      string        `yaml:"host" json:"host"`
	Port      int           `yaml:"port" json:"port"`
	Username  string        `yaml:"username,omitempty" json:"username,omitempty"`
	Password  string        `yaml:"password,omitempty" json:"password,omitempty"`
	KeepAlive time.Duration `yaml:"keepAlive" json:"keepAlive"`

	// Driver
	Clients        int           `yaml:"clients" json:"clients"`
	SpawnInterval  time.Duration `yaml:"spawnInterval" json:"spawnInterval"`
	InterruptGrace time.Duration `yaml:"interruptGrace" json:"interruptGrace"`
	SignalInterval time.Duration `yaml:"signalInterval" json:"signalInterval"`
	RosterFile     string        `yaml:"rosterFile,omitempty" json:"rosterFile,omitempty"`
	EmbeddedBroker bool          `yaml:"embeddedBroker" json:"embeddedBroker"`

	// Worker session
	SubscribeTopic      string          `yaml:"subscribeTopic" json:"subscribeTopic"`
	QoS                 int             `yaml:"qos" json:"qos"`
	WaitForSubscription bool            `yaml:"waitForSubscription" json:"waitForSubscription"`
	SubscriptionTimeout time.Duration   `yaml:"subscriptionTimeout" json:"subscriptionTimeout"`
	ConnectTimeout      time.Duration   `yaml:"connectTimeout" json:"connectTimeout"`
	PublishTimeout      time.Duration   `yaml:"publishTimeout" json:"publishTimeout"`
	Catalog             catalog.Catalog `yaml:"catalog" json:"catalog"`

	// Logging
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which top-level keys were present in a loaded file,
	// so an explicit false can override a true from a lower layer.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceFlag    = "flag"
)
