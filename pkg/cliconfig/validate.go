package cliconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks the merged configuration and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range (1-65535)", c.Port))
	}
	if c.Clients < 1 {
		errs = append(errs, fmt.Errorf("clients must be at least 1, got %d", c.Clients))
	}
	if c.QoS < 0 || c.QoS > 2 {
		errs = append(errs, fmt.Errorf("qos %d is out of range (0-2)", c.QoS))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"keepAlive", c.KeepAlive},
		{"spawnInterval", c.SpawnInterval},
		{"interruptGrace", c.InterruptGrace},
		{"signalInterval", c.SignalInterval},
		{"subscriptionTimeout", c.SubscriptionTimeout},
		{"connectTimeout", c.ConnectTimeout},
		{"publishTimeout", c.PublishTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s %s must not be negative", d.name, d.value))
		}
	}

	if c.SubscribeTopic == "" {
		errs = append(errs, errors.New("subscribeTopic must not be empty"))
	}
	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("catalog: %w", err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logLevel %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat %q is not one of text, json", c.LogFormat))
	}

	return errors.Join(errs...)
}
