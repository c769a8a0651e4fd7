// Package client wraps a single paho MQTT connection for one worker session.
//
// A Client owns exactly one broker connection for its lifetime and moves
// through disconnected → connecting → connected → disconnected. It never
// reconnects. Once the broker accepts the connection the client subscribes
// to its configured topic; inbound messages are handed to a delivery loop
// that runs between Start and Stop.
//
//	c := client.New(client.Config{Host: "localhost", Port: 1883}, logger)
//	if err := c.Connect(ctx); err != nil {
//	    return err
//	}
//	c.Start()
//	err := c.Publish("sensors/home", "Doing")
//	c.Stop()
//	c.Disconnect()
package client
