//go:build windows

package driver

import (
	"os"

	"golang.org/x/sys/windows"
)

// Windows cannot deliver an interrupt to another process, so workers and
// drivers are killed outright.
var (
	defaultSignal = os.Kill
	stopSignal    = os.Kill
)

// stopReachesWorkers is false because a killed driver never signals its workers.
const stopReachesWorkers = false

// processAlive checks if a process is running on Windows.
func processAlive(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	event, err := windows.WaitForSingleObject(handle, 0)
	if err != nil {
		return false
	}
	// WAIT_TIMEOUT means the process is still running.
	return event == uint32(windows.WAIT_TIMEOUT)
}
