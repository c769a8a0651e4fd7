//go:build !windows

package driver

import (
	"os"
	"syscall"
)

// defaultSignal is what interrupted workers receive.
var defaultSignal os.Signal = syscall.SIGINT

// stopSignal is what the stop command sends to a running driver. The driver
// reacts by running its own interrupt sequence.
var stopSignal os.Signal = syscall.SIGINT

// stopReachesWorkers reports whether signalling the driver is enough to stop
// its workers.
const stopReachesWorkers = true

// processAlive checks if a process is running using signal 0.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
