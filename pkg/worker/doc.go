// Package worker runs a single swarm session: connect, subscribe, publish one
// randomly chosen message, disconnect.
//
// A session is normally run inside its own process, started by the driver
// with the hidden "worker" command. The driver hands the resolved settings
// over in the MQTTSWARM_WORKER_CONFIG environment variable as a YAML
// document; see Assignment.
package worker
