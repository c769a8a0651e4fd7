package cliconfig

import (
	"github.com/getmockd/mqttswarm/pkg/client"
)

// ClientConfig returns the per-session client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		Host:           c.Host,
		Port:           c.Port,
		Username:       c.Username,
		Password:       c.Password,
		KeepAlive:      c.KeepAlive,
		SubscribeTopic: c.SubscribeTopic,
		QoS:            byte(c.QoS),
		ConnectTimeout: c.ConnectTimeout,
		PublishTimeout: c.PublishTimeout,
	}
}

// BrokerAddress is the host:port workers connect to.
func (c *Config) BrokerAddress() string {
	return c.ClientConfig().BrokerURL()
}
