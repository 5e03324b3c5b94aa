package supervisor

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestHelperProcess is not a real test; it is the child the other tests spawn.
func TestHelperProcess(_ *testing.T) {
	if os.Getenv("SUPERVISOR_HELPER") != "1" {
		return
	}
	switch os.Getenv("SUPERVISOR_MODE") {
	case "fail":
		os.Exit(3)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Minute)
	default:
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM)
		select {
		case <-ch:
			os.Exit(0)
		case <-time.After(time.Minute):
			os.Exit(1)
		}
	}
	os.Exit(0)
}

func helper(name, mode string) Process {
	return Process{
		Name: name,
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$"},
		Env:  []string{"SUPERVISOR_HELPER=1", "SUPERVISOR_MODE=" + mode},
	}
}

func TestRunForwardsCancellation(t *testing.T) {
	t.Parallel()

	s := New([]Process{helper("api", "wait"), helper("ui", "wait")}, 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	require.NoError(t, s.Run(ctx))
}

func TestRunStopsSiblingWhenChildFails(t *testing.T) {
	t.Parallel()

	s := New([]Process{helper("api", "wait"), helper("ui", "fail")}, 5*time.Second, zap.NewNop())
	err := s.Run(context.Background())
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "ui")
}

func TestRunKillsAfterGrace(t *testing.T) {
	t.Parallel()

	s := New([]Process{helper("stubborn", "stubborn")}, 200*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	start := time.Now()
	require.NoError(t, s.Run(ctx))
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestRunStartFailure(t *testing.T) {
	t.Parallel()

	s := New([]Process{helper("api", "wait"), {Name: "ghost", Path: "/nonexistent/binary"}}, time.Second, zap.NewNop())
	err := s.Run(context.Background())
	require.ErrorContains(t, err, "start ghost")

	require.Error(t, New(nil, 0, nil).Run(context.Background()))
}
