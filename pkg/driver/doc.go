// Package driver spawns and tracks the worker processes of a swarm run.
//
// A Driver starts Config.Clients workers, one per SpawnInterval, and then
// waits for them to exit. When its context is cancelled (the operator
// interrupted the run) it pauses for InterruptGrace and sends Config.Signal
// to every worker it started, one at a time, SignalInterval apart.
//
// Each run is described by a Roster: a small JSON file holding the driver
// PID and the PIDs of its workers. The stop and status commands read it.
package driver
