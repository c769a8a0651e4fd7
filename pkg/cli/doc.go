// Package cli implements the mqttswarm command line.
//
// Commands:
//
//	run      spawn the workers (default)
//	broker   run the embedded MQTT broker
//	init     write a starter config file
//	config   show the effective configuration
//	stop     stop a running swarm
//	status   show the running swarm
//	version  print version information
//
// The hidden worker command runs one session and is only invoked by run.
package cli
