package cli

import "errors"

// Common CLI errors
var (
	ErrSwarmNotRunning = errors.New("no swarm running - start one with: mqttswarm run")
	ErrInvalidIndex    = errors.New("worker index must be at least 1")
)
