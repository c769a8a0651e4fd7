package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mqttswarm/pkg/catalog"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 1883, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.KeepAlive)
	assert.Equal(t, 20, cfg.Clients)
	assert.Equal(t, time.Second, cfg.SpawnInterval)
	assert.Equal(t, time.Second, cfg.InterruptGrace)
	assert.Equal(t, time.Second, cfg.SignalInterval)
	assert.Equal(t, "my/topic", cfg.SubscribeTopic)
	assert.False(t, cfg.WaitForSubscription)
	assert.Equal(t, catalog.Default(), cfg.Catalog)
	assert.Equal(t, SourceDefault, cfg.Sources["clients"])
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "port 70000 is out of range"},
		{name: "port zero", mutate: func(c *Config) { c.Port = 0 }, wantErr: "port 0 is out of range"},
		{name: "no clients", mutate: func(c *Config) { c.Clients = 0 }, wantErr: "clients must be at least 1"},
		{name: "qos out of range", mutate: func(c *Config) { c.QoS = 3 }, wantErr: "qos 3 is out of range"},
		{name: "negative spawn interval", mutate: func(c *Config) { c.SpawnInterval = -time.Second }, wantErr: "spawnInterval -1s must not be negative"},
		{name: "zero spawn interval allowed", mutate: func(c *Config) { c.SpawnInterval = 0 }},
		{name: "empty host", mutate: func(c *Config) { c.Host = " " }, wantErr: "host must not be empty"},
		{name: "empty catalog", mutate: func(c *Config) { c.Catalog.Messages = nil }, wantErr: "catalog:"},
		{name: "wildcard topic", mutate: func(c *Config) { c.Catalog.Topics = []string{"a/#"} }, wantErr: "catalog:"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: `logLevel "loud"`},
		{name: "mixed case log level", mutate: func(c *Config) { c.LogLevel = "DEBUG" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: `logFormat "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
host: broker.local
port: 1884
clients: 5
spawnInterval: 250ms
waitForSubscription: true
catalog:
  messages: [hello]
  topics: [a/b]
`)
	cfg, err := ParseConfig("test.yaml", data)
	require.NoError(t, err)

	assert.Equal(t, "broker.local", cfg.Host)
	assert.Equal(t, 1884, cfg.Port)
	assert.Equal(t, 5, cfg.Clients)
	assert.Equal(t, 250*time.Millisecond, cfg.SpawnInterval)
	assert.True(t, cfg.WaitForSubscription)
	assert.Equal(t, []string{"hello"}, cfg.Catalog.Messages)
	assert.True(t, cfg.SetFields["waitForSubscription"])
	assert.False(t, cfg.SetFields["embeddedBroker"])
}

func TestParseConfig_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "unknown key", data: "hots: localhost\n", wantErr: "test.yaml"},
		{name: "port as string", data: "port: high\n", wantErr: "port"},
		{name: "port out of range", data: "port: 0\n", wantErr: "port"},
		{name: "integer duration", data: "spawnInterval: 5\n", wantErr: "spawnInterval"},
		{name: "malformed duration", data: "spawnInterval: soon\n", wantErr: "spawnInterval"},
		{name: "empty message list", data: "catalog:\n  messages: []\n", wantErr: "catalog.messages"},
		{name: "bad log level", data: "logLevel: loud\n", wantErr: "logLevel"},
		{name: "bad qos", data: "qos: 5\n", wantErr: "qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("test.yaml", []byte(tt.data))
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.SetFields)
}

func TestParseConfig_SyntaxErrorHasLine(t *testing.T) {
	_, err := ParseConfig("broken.yaml", []byte("host: a\nport: [1\n"))
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "broken.yaml", cfgErr.Path)
}

func TestMergeConfig_BasicFields(t *testing.T) {
	target := NewDefault()
	source := &Config{
		Host:          "other",
		Port:          2883,
		Clients:       3,
		SpawnInterval: 10 * time.Millisecond,
	}

	MergeConfig(target, source, SourceLocal)

	assert.Equal(t, "other", target.Host)
	assert.Equal(t, 2883, target.Port)
	assert.Equal(t, 3, target.Clients)
	assert.Equal(t, 10*time.Millisecond, target.SpawnInterval)
	assert.Equal(t, SourceLocal, target.Sources["host"])
	// Untouched fields keep their defaults.
	assert.Equal(t, 60*time.Second, target.KeepAlive)
	assert.Equal(t, SourceDefault, target.Sources["keepAlive"])
}

func TestMergeConfig_ExplicitFalseOverridesTrue(t *testing.T) {
	target := NewDefault()
	target.WaitForSubscription = true
	target.EmbeddedBroker = true

	source, err := ParseConfig("f.yaml", []byte("waitForSubscription: false\n"))
	require.NoError(t, err)
	MergeConfig(target, source, SourceFile)

	assert.False(t, target.WaitForSubscription)
	assert.True(t, target.EmbeddedBroker, "absent key must not override")
}

func TestMergeConfig_ExplicitZeroInterval(t *testing.T) {
	target := NewDefault()
	source, err := ParseConfig("f.yaml", []byte("spawnInterval: 0s\nqos: 0\n"))
	require.NoError(t, err)
	MergeConfig(target, source, SourceFile)

	assert.Zero(t, target.SpawnInterval)
	assert.Equal(t, SourceFile, target.Sources["spawnInterval"])
	assert.Equal(t, SourceFile, target.Sources["qos"])
}

func TestMergeConfig_Nil(t *testing.T) {
	target := NewDefault()
	MergeConfig(target, nil, SourceFile)
	assert.Equal(t, NewDefault().Host, target.Host)
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv(EnvHost, "env-host")
	t.Setenv(EnvPort, "11883")
	t.Setenv(EnvClients, "4")
	t.Setenv(EnvSpawnInterval, "50ms")
	t.Setenv(EnvWaitSubscribed, "true")

	cfg := NewDefault()
	require.NoError(t, LoadEnvConfig(cfg))

	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, 11883, cfg.Port)
	assert.Equal(t, 4, cfg.Clients)
	assert.Equal(t, 50*time.Millisecond, cfg.SpawnInterval)
	assert.True(t, cfg.WaitForSubscription)
	assert.Equal(t, SourceEnv, cfg.Sources["port"])
}

func TestLoadEnvConfig_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{EnvPort, "abc"},
		{EnvClients, "many"},
		{EnvKeepAlive, "forever"},
		{EnvWaitSubscribed, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			err := LoadEnvConfig(NewDefault())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoadAll_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	t.Setenv(EnvConfig, "")

	require.NoError(t, os.WriteFile(".mqttswarm.yaml", []byte("host: local-host\nclients: 7\n"), 0o600))
	t.Setenv(EnvClients, "9")

	cfg, err := LoadAll("")
	require.NoError(t, err)

	assert.Equal(t, "local-host", cfg.Host)
	assert.Equal(t, SourceLocal, cfg.Sources["host"])
	assert.Equal(t, 9, cfg.Clients)
	assert.Equal(t, SourceEnv, cfg.Sources["clients"])
}

func TestLoadAll_ExplicitFileWinsOverLocal(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)

	require.NoError(t, os.WriteFile(".mqttswarm.yaml", []byte("host: local-host\n"), 0o600))
	explicit := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("port: 2000\n"), 0o600))

	cfg, err := LoadAll(explicit)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host, "local file is ignored when a file is given")
	assert.Equal(t, 2000, cfg.Port)
	assert.Equal(t, SourceFile, cfg.Sources["port"])
}

func TestLoadAll_MissingExplicitFile(t *testing.T) {
	_, err := LoadAll(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := NewDefault()
	cfg.Clients = 3

	require.NoError(t, WriteConfigFile(path, cfg, false))
	err := WriteConfigFile(path, cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Clients)
	assert.Equal(t, cfg.SpawnInterval, loaded.SpawnInterval)
	assert.Equal(t, cfg.Catalog, loaded.Catalog)
}

func TestClientConfig(t *testing.T) {
	cfg := NewDefault()
	cfg.QoS = 1
	cc := cfg.ClientConfig()

	assert.Equal(t, "localhost", cc.Host)
	assert.Equal(t, 1883, cc.Port)
	assert.Equal(t, byte(1), cc.QoS)
	assert.Equal(t, "my/topic", cc.SubscribeTopic)
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerAddress())
}
