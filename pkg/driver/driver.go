package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/mqttswarm/pkg/logging"
)

// DefaultClients is used when Config.Clients is not positive.
const DefaultClients = 20

// ErrInterrupted is returned by Run when the run was cancelled and the
// workers were signalled.
var ErrInterrupted = errors.New("run interrupted")

// Process is a handle to a started worker.
type Process interface {
	Pid() int
	Signal(sig os.Signal) error
	Wait() error
}

// Spawner starts worker processes. index is 1-based.
type Spawner interface {
	Spawn(ctx context.Context, index int) (Process, error)
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(ctx context.Context, index int) (Process, error)

// Spawn calls f(ctx, index).
func (f SpawnerFunc) Spawn(ctx context.Context, index int) (Process, error) {
	return f(ctx, index)
}

// Config configures a Driver.
type Config struct {
	Clients        int
	SpawnInterval  time.Duration
	InterruptGrace time.Duration
	SignalInterval time.Duration

	// Signal is sent to each worker on interruption. Defaults to SIGINT,
	// or Kill where SIGINT cannot be delivered to another process.
	Signal os.Signal

	// RosterPath is where the run roster is kept. Empty disables it.
	RosterPath string
	// Broker is recorded in the roster for status output.
	Broker string

	// Stdout receives the per-worker banner. Defaults to os.Stdout.
	Stdout io.Writer
}

func (c Config) withDefaults() Config {
	if c.Clients <= 0 {
		c.Clients = DefaultClients
	}
	if c.SpawnInterval < 0 {
		c.SpawnInterval = 0
	}
	if c.InterruptGrace < 0 {
		c.InterruptGrace = 0
	}
	if c.SignalInterval < 0 {
		c.SignalInterval = 0
	}
	if c.Signal == nil {
		c.Signal = defaultSignal
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	return c
}

// SleepFunc pauses for d. It returns ctx.Err() if ctx is done first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// WithSleep replaces the pause used between spawns and signals.
func WithSleep(sleep SleepFunc) Option {
	return func(d *Driver) {
		d.sleep = sleep
	}
}

type handle struct {
	index  int
	proc   Process
	exited chan struct{}
}

func (h *handle) hasExited() bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}

// Driver runs one swarm.
type Driver struct {
	cfg     Config
	spawner Spawner
	log     *slog.Logger
	sleep   SleepFunc

	mu         sync.Mutex
	handles    []*handle
	roster     *Roster
	keepRoster bool
}

// New creates a driver that starts workers with spawner.
func New(cfg Config, spawner Spawner, opts ...Option) *Driver {
	d := &Driver{
		cfg:     cfg.withDefaults(),
		spawner: spawner,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = logging.OrNop(d.log)
	return d
}

// Config returns the effective configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Handles returns the PIDs of the workers started so far, in spawn order.
func (d *Driver) Handles() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	pids := make([]int, len(d.handles))
	for i, h := range d.handles {
		pids[i] = h.proc.Pid()
	}
	return pids
}

// Run spawns the workers and waits for them to exit. If ctx is cancelled at
// any point, every started worker is signalled and ErrInterrupted returned.
// Spawn failures are logged and not retried.
func (d *Driver) Run(ctx context.Context) error {
	d.openRoster()
	defer d.closeRoster()

	d.log.Info("starting swarm", "clients", d.cfg.Clients, "spawnInterval", d.cfg.SpawnInterval, "broker", d.cfg.Broker)

	for i := 1; i <= d.cfg.Clients; i++ {
		if ctx.Err() != nil {
			return d.interrupt()
		}

		fmt.Fprintf(d.cfg.Stdout, "\n MQTTClient No %d \n\n", i)

		proc, err := d.spawner.Spawn(ctx, i)
		switch {
		case err != nil && ctx.Err() != nil:
			return d.interrupt()
		case err != nil:
			d.log.Error("failed to start worker", "worker", i, "error", err)
		default:
			d.track(i, proc)
		}

		if err := d.sleep(ctx, d.cfg.SpawnInterval); err != nil {
			return d.interrupt()
		}
	}

	return d.wait(ctx)
}

func (d *Driver) track(index int, proc Process) {
	h := &handle{index: index, proc: proc, exited: make(chan struct{})}

	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()

	d.log.Debug("worker started", "worker", index, "pid", proc.Pid())
	d.updateRoster(index, proc.Pid())

	go func() {
		defer close(h.exited)
		if err := proc.Wait(); err != nil {
			d.log.Debug("worker exited", "worker", index, "pid", proc.Pid(), "error", err)
			return
		}
		d.log.Debug("worker exited", "worker", index, "pid", proc.Pid())
	}()
}

func (d *Driver) snapshot() []*handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*handle(nil), d.handles...)
}

// wait blocks until every started worker has exited.
func (d *Driver) wait(ctx context.Context) error {
	for _, h := range d.snapshot() {
		select {
		case <-h.exited:
		case <-ctx.Done():
			return d.interrupt()
		}
	}
	d.log.Info("swarm finished", "workers", len(d.snapshot()))
	return nil
}

// interrupt signals every started worker once. It does not wait for the
// workers to exit.
func (d *Driver) interrupt() error {
	handles := d.snapshot()
	d.log.Info("interrupted, stopping workers", "workers", len(handles), "signal", d.cfg.Signal)

	// The run context is already done, so the pauses here use a fresh one.
	bg := context.Background()
	_ = d.sleep(bg, d.cfg.InterruptGrace)

	for _, h := range handles {
		if h.hasExited() {
			d.log.Debug("worker already exited", "worker", h.index, "pid", h.proc.Pid())
		} else if err := h.proc.Signal(d.cfg.Signal); err != nil {
			if errors.Is(err, os.ErrProcessDone) {
				d.log.Debug("worker already exited", "worker", h.index, "pid", h.proc.Pid())
			} else {
				d.log.Warn("failed to signal worker", "worker", h.index, "pid", h.proc.Pid(), "error", err)
			}
		} else {
			d.log.Debug("signalled worker", "worker", h.index, "pid", h.proc.Pid())
		}
		_ = d.sleep(bg, d.cfg.SignalInterval)
	}

	if alive := d.survivors(handles); alive > 0 {
		d.log.Warn("workers still running after interrupt, keeping roster", "workers", alive, "roster", d.cfg.RosterPath)
		d.mu.Lock()
		d.keepRoster = true
		d.mu.Unlock()
	}

	return ErrInterrupted
}

// survivorSettle bounds how long interrupt waits for signalled workers to be
// reaped before counting them as still running.
const survivorSettle = 250 * time.Millisecond

func (d *Driver) survivors(handles []*handle) int {
	deadline := time.NewTimer(survivorSettle)
	defer deadline.Stop()

	alive := 0
	for _, h := range handles {
		select {
		case <-h.exited:
		case <-deadline.C:
			// Remaining handles are only checked, not waited for.
			for _, rest := range handles {
				if !rest.hasExited() {
					alive++
				}
			}
			return alive
		}
	}
	return 0
}

func (d *Driver) openRoster() {
	if d.cfg.RosterPath == "" {
		return
	}
	d.mu.Lock()
	d.roster = &Roster{
		RunID:     uuid.NewString(),
		PID:       os.Getpid(),
		StartTime: time.Now(),
		Broker:    d.cfg.Broker,
		Clients:   d.cfg.Clients,
	}
	r := d.roster.clone()
	d.mu.Unlock()

	if err := WriteRoster(d.cfg.RosterPath, r); err != nil {
		d.log.Warn("failed to write roster", "path", d.cfg.RosterPath, "error", err)
	}
}

func (d *Driver) updateRoster(index, pid int) {
	d.mu.Lock()
	if d.roster == nil {
		d.mu.Unlock()
		return
	}
	d.roster.Workers = append(d.roster.Workers, WorkerEntry{Index: index, PID: pid, StartTime: time.Now()})
	r := d.roster.clone()
	d.mu.Unlock()

	if err := WriteRoster(d.cfg.RosterPath, r); err != nil {
		d.log.Warn("failed to update roster", "path", d.cfg.RosterPath, "error", err)
	}
}

// closeRoster removes the roster unless workers outlived an interrupt, in
// which case it is left for status and stop.
func (d *Driver) closeRoster() {
	d.mu.Lock()
	open := d.roster != nil && !d.keepRoster
	d.roster = nil
	d.mu.Unlock()

	if !open {
		return
	}
	if err := RemoveRoster(d.cfg.RosterPath); err != nil {
		d.log.Warn("failed to remove roster", "path", d.cfg.RosterPath, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
