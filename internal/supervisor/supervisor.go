// Package supervisor runs the API and UI as child processes, forwards
// termination signals to them, and stops both when either exits.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const defaultGrace = 10 * time.Second

// Process describes one child.
type Process struct {
	Name string
	Path string
	Args []string
	Env  []string
}

// Supervisor owns a set of child processes.
type Supervisor struct {
	procs  []Process
	grace  time.Duration
	logger *zap.Logger
}

// New returns a Supervisor. grace bounds how long children get between
// SIGTERM and SIGKILL.
func New(procs []Process, grace time.Duration, logger *zap.Logger) *Supervisor {
	if grace <= 0 {
		grace = defaultGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{procs: procs, grace: grace, logger: logger.Named("supervisor")}
}

type exit struct {
	name string
	err  error
}

// Run starts every child and blocks until ctx is canceled or one child exits.
// The remaining children are then sent SIGTERM and, after the grace period,
// SIGKILL. The first child failure is returned; a canceled ctx is not an error.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.procs) == 0 {
		return errors.New("no processes to supervise")
	}

	cmds := make([]*exec.Cmd, 0, len(s.procs))
	exits := make(chan exit, len(s.procs))
	for _, p := range s.procs {
		cmd := exec.Command(p.Path, p.Args...) //nolint:gosec // path and args come from our own binary
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), p.Env...)
		if err := cmd.Start(); err != nil {
			s.terminate(cmds)
			s.drain(exits, len(cmds))
			return fmt.Errorf("start %s: %w", p.Name, err)
		}
		s.logger.Info("child started", zap.String("name", p.Name), zap.Int("pid", cmd.Process.Pid))
		cmds = append(cmds, cmd)
		go func(name string, cmd *exec.Cmd) {
			exits <- exit{name: name, err: cmd.Wait()}
		}(p.Name, cmd)
	}

	var first error
	remaining := len(cmds)
	select {
	case <-ctx.Done():
		s.logger.Info("forwarding shutdown to children")
	case e := <-exits:
		remaining--
		s.logger.Warn("child exited, stopping the rest", zap.String("name", e.name), zap.Error(e.err))
		first = childError(e)
		if first == nil {
			first = fmt.Errorf("%s exited unexpectedly", e.name)
		}
	}

	s.terminate(cmds)
	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	for remaining > 0 {
		select {
		case e := <-exits:
			remaining--
			s.logger.Info("child stopped", zap.String("name", e.name), zap.Error(e.err))
		case <-timer.C:
			s.logger.Warn("grace period elapsed, killing children")
			for _, cmd := range cmds {
				_ = cmd.Process.Kill()
			}
			s.drain(exits, remaining)
			remaining = 0
		}
	}
	return first
}

func (s *Supervisor) terminate(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("signal child failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		}
	}
}

func (s *Supervisor) drain(exits <-chan exit, n int) {
	for range n {
		<-exits
	}
}

func childError(e exit) error {
	if e.err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", e.name, e.err)
}
