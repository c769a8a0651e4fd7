// Package broker provides an embedded MQTT broker to point a swarm at.
//
// It wraps mochi-mqtt with an allow-all auth hook and a TrafficHook that
// counts the connect, subscribe and publish traffic the workers generate.
// The `mqttswarm broker` command runs one in the foreground, `mqttswarm run
// --embedded-broker` runs one alongside the driver, and the tests of the
// client, worker and driver packages use it as their target.
//
//	b, err := broker.NewBroker(&broker.Config{Port: 1883})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Stop(context.Background(), 5*time.Second)
package broker
