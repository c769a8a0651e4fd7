package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoRoster is returned when no run roster exists at the given path.
var ErrNoRoster = errors.New("no swarm is running")

// Roster describes a running swarm.
type Roster struct {
	RunID     string        `json:"runId"`
	PID       int           `json:"pid"`
	StartTime time.Time     `json:"startTime"`
	Broker    string        `json:"broker,omitempty"`
	Clients   int           `json:"clients"`
	Workers   []WorkerEntry `json:"workers"`
}

// WorkerEntry records one started worker.
type WorkerEntry struct {
	Index     int       `json:"index"`
	PID       int       `json:"pid"`
	StartTime time.Time `json:"startTime"`
}

func (r *Roster) clone() *Roster {
	c := *r
	c.Workers = append([]WorkerEntry(nil), r.Workers...)
	return &c
}

// DefaultRosterPath returns the default roster location
// ($TMPDIR/mqttswarm/mqttswarm.pid).
func DefaultRosterPath() string {
	return filepath.Join(os.TempDir(), "mqttswarm", "mqttswarm.pid")
}

// WriteRoster writes the roster to path, creating the parent directory.
// The file is replaced atomically.
func WriteRoster(path string, r *Roster) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create roster directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write roster: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename roster: %w", err)
	}
	return nil
}

// ReadRoster reads the roster at path. A missing file yields ErrNoRoster.
func ReadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (no roster at %s)", ErrNoRoster, path)
		}
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	var r Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse roster %s: %w", path, err)
	}
	return &r, nil
}

// RemoveRoster removes the roster at path. A missing file is not an error.
func RemoveRoster(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove roster: %w", err)
	}
	return nil
}

// IsRunning reports whether the driver process is still alive.
func (r *Roster) IsRunning() bool {
	return r.PID > 0 && processAlive(r.PID)
}

// AliveWorkers returns the workers whose processes are still alive.
func (r *Roster) AliveWorkers() []WorkerEntry {
	var alive []WorkerEntry
	for _, w := range r.Workers {
		if w.PID > 0 && processAlive(w.PID) {
			alive = append(alive, w)
		}
	}
	return alive
}

// Uptime returns the duration since the run started.
func (r *Roster) Uptime() time.Duration {
	if r.StartTime.IsZero() {
		return 0
	}
	return time.Since(r.StartTime)
}

// FormatUptime returns a short human-readable uptime.
func (r *Roster) FormatUptime() string {
	d := r.Uptime()
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
