package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names
const (
	EnvConfig         = "MQTTSWARM_CONFIG"
	EnvHost           = "MQTTSWARM_HOST"
	EnvPort           = "MQTTSWARM_PORT"
	EnvUsername       = "MQTTSWARM_USERNAME"
	EnvPassword       = "MQTTSWARM_PASSWORD"
	EnvKeepAlive      = "MQTTSWARM_KEEPALIVE"
	EnvClients        = "MQTTSWARM_CLIENTS"
	EnvSpawnInterval  = "MQTTSWARM_SPAWN_INTERVAL"
	EnvSubscribeTopic = "MQTTSWARM_SUBSCRIBE_TOPIC"
	EnvWaitSubscribed = "MQTTSWARM_WAIT_SUBSCRIBED"
	EnvRosterFile     = "MQTTSWARM_ROSTER"
	EnvLogLevel       = "MQTTSWARM_LOG_LEVEL"
	EnvLogFormat      = "MQTTSWARM_LOG_FORMAT"
)

// LoadEnvConfig applies environment variables to cfg.
// It only sets values that are present in the environment and returns an
// error naming the first variable that fails to parse.
func LoadEnvConfig(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	setString := func(env, key string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = SourceEnv
		}
	}
	setInt := func(env, key string, dst *int) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", env, v)
		}
		*dst = n
		cfg.Sources[key] = SourceEnv
		return nil
	}
	setDuration := func(env, key string, dst *time.Duration) error {
		v := os.Getenv(env)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", env, v)
		}
		*dst = d
		cfg.Sources[key] = SourceEnv
		return nil
	}

	setString(EnvHost, "host", &cfg.Host)
	setString(EnvUsername, "username", &cfg.Username)
	setString(EnvPassword, "password", &cfg.Password)
	setString(EnvSubscribeTopic, "subscribeTopic", &cfg.SubscribeTopic)
	setString(EnvRosterFile, "rosterFile", &cfg.RosterFile)
	setString(EnvLogLevel, "logLevel", &cfg.LogLevel)
	setString(EnvLogFormat, "logFormat", &cfg.LogFormat)

	if err := setInt(EnvPort, "port", &cfg.Port); err != nil {
		return err
	}
	if err := setInt(EnvClients, "clients", &cfg.Clients); err != nil {
		return err
	}
	if err := setDuration(EnvKeepAlive, "keepAlive", &cfg.KeepAlive); err != nil {
		return err
	}
	if err := setDuration(EnvSpawnInterval, "spawnInterval", &cfg.SpawnInterval); err != nil {
		return err
	}

	if v := os.Getenv(EnvWaitSubscribed); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvWaitSubscribed, v)
		}
		cfg.WaitForSubscription = b
		cfg.Sources["waitForSubscription"] = SourceEnv
	}

	return nil
}
