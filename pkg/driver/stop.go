package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/getmockd/mqttswarm/pkg/logging"
)

// StopResult reports what Stop signalled.
type StopResult struct {
	Roster        *Roster       `json:"roster"`
	DriverStopped bool          `json:"driverStopped"`
	Workers       []WorkerEntry `json:"workers,omitempty"`
}

// Stop ends the run described by the roster at path. A live driver is
// signalled and runs its own interrupt sequence. Workers are signalled
// directly when the driver is gone or cannot forward the interrupt.
func Stop(path string, log *slog.Logger) (*StopResult, error) {
	log = logging.OrNop(log)

	r, err := ReadRoster(path)
	if err != nil {
		return nil, err
	}
	res := &StopResult{Roster: r}

	if r.IsRunning() {
		if err := signalPID(r.PID, stopSignal); err != nil {
			return res, fmt.Errorf("failed to signal driver %d: %w", r.PID, err)
		}
		res.DriverStopped = true
		log.Debug("signalled driver", "pid", r.PID, "signal", stopSignal)
		if stopReachesWorkers {
			return res, nil
		}
	}

	for _, w := range r.AliveWorkers() {
		if err := signalPID(w.PID, defaultSignal); err != nil {
			log.Warn("failed to signal worker", "worker", w.Index, "pid", w.PID, "error", err)
			continue
		}
		res.Workers = append(res.Workers, w)
	}

	// The driver removes its own roster; an orphaned one is cleaned up here.
	if !res.DriverStopped {
		if err := RemoveRoster(path); err != nil {
			log.Warn("failed to remove roster", "path", path, "error", err)
		}
	}
	return res, nil
}

func signalPID(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := p.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
