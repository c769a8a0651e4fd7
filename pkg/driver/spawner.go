package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/getmockd/mqttswarm/pkg/worker"
)

// ExecSpawner starts each worker by re-executing a binary, by default the
// running one, with the hidden worker command.
type ExecSpawner struct {
	// Path is the binary to run. Empty means os.Executable().
	Path string
	// Args precede the index flag. Defaults to {"worker"}.
	Args []string
	// Assignment is handed to every worker through the environment.
	Assignment worker.Assignment
	// Env holds extra KEY=value entries for the workers.
	Env []string

	// Stdout and Stderr default to the driver's own.
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts worker index. The process is not tied to ctx: workers are
// stopped by the driver's interrupt sequence, not by cancellation.
func (s *ExecSpawner) Spawn(_ context.Context, index int) (Process, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		path = exe
	}

	args := s.Args
	if args == nil {
		args = []string{"worker"}
	}
	args = append(append([]string(nil), args...), "--index", strconv.Itoa(index))

	entry, err := s.Assignment.Env()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, args...)
	cmd.Env = append(append(os.Environ(), entry), s.Env...)
	cmd.Stdout = s.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker %d: %w", index, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
