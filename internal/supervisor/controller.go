package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"licman/internal/console"
	"licman/internal/history"
	"licman/pkg/cmdutil"
	"licman/pkg/fileutil"
)

// Lifecycle verbs.
const (
	VerbStart   = "start"
	VerbStop    = "stop"
	VerbRestart = "restart"
	VerbKill    = "kill"
	VerbHelp    = "help"
)

const logTailLines = 18

// Recorder stores lifecycle events.
type Recorder interface {
	RecordEvent(ctx context.Context, e *history.Event) (int64, error)
}

// Controller drives one process group. Every call re-reads the PID file;
// nothing is remembered between invocations.
type Controller struct {
	Group Group

	Runner cmdutil.Runner
	Out    *console.Printer
	Stderr io.Writer
	Logger *slog.Logger

	// Recorder is optional.
	Recorder Recorder

	Sleep     func(time.Duration)
	Alive     func(pid int) bool
	Terminate func(pid int) error
	Environ   func() []string
}

// NewController returns a Controller for g wired to the real system.
func NewController(g Group, out io.Writer) *Controller {
	return &Controller{
		Group:     g,
		Runner:    cmdutil.Exec,
		Out:       console.New(out),
		Stderr:    os.Stderr,
		Logger:    slog.Default(),
		Sleep:     time.Sleep,
		Alive:     ProcessAlive,
		Terminate: terminate,
		Environ:   os.Environ,
	}
}

// Status probes the group's PID file.
func (c *Controller) Status() Status {
	return Probe(c.Group.PIDPath, c.Alive)
}

// Dispatch runs the verb named by the first CLI argument. Unknown or empty
// verbs print the usage text.
func (c *Controller) Dispatch(ctx context.Context, verb string) error {
	switch verb {
	case VerbStart:
		return c.Start(ctx)
	case VerbStop:
		return c.Stop(ctx)
	case VerbRestart:
		return c.Restart(ctx)
	case VerbKill:
		return c.Kill(ctx)
	default:
		c.Help()
		return nil
	}
}

// Help prints the usage text.
func (c *Controller) Help() {
	c.Out.Printf("%s", c.Group.Usage)
}

// Start starts the services through supervisorctl when the daemon is
// running, otherwise launches supervisord and shows the tail of its log.
func (c *Controller) Start(ctx context.Context) error {
	return c.record(ctx, VerbStart, func() (string, error) {
		if c.Status().Running() {
			c.Out.Println("Supervisor already running. Starting " + c.Group.Services + "...")
			return history.StatusSuccess, c.ctl(ctx, "start")
		}

		c.Out.Println("Starting " + c.Group.Daemon + "...")
		err := c.run(ctx, []string{"supervisord", "-c", c.Group.ConfigPath})
		if err == nil {
			c.sleep(c.Group.SettleDelay)
		}
		if tailErr := fileutil.WriteTail(c.Out.Writer(), c.Group.LogPath, logTailLines); tailErr != nil {
			c.logger().Warn("could not show supervisor log", "path", c.Group.LogPath, "error", tailErr)
		}
		return history.StatusSuccess, err
	})
}

// Stop stops all programs of a running daemon.
func (c *Controller) Stop(ctx context.Context) error {
	return c.record(ctx, VerbStop, func() (string, error) {
		return c.stop(ctx)
	})
}

func (c *Controller) stop(ctx context.Context) (string, error) {
	if !c.Status().Running() {
		c.Out.Println("No running supervisor daemon found.")
		return history.StatusSkipped, nil
	}
	c.Out.Println("Stopping " + c.Group.Services + "...")
	return history.StatusSuccess, c.ctl(ctx, "stop")
}

// Restart restarts all programs of a running daemon.
func (c *Controller) Restart(ctx context.Context) error {
	return c.record(ctx, VerbRestart, func() (string, error) {
		if !c.Status().Running() {
			c.Out.Println("No running supervisor daemon found.")
			return history.StatusSkipped, nil
		}
		c.Out.Println("Restarting " + c.Group.Services + "...")
		return history.StatusSuccess, c.ctl(ctx, "restart")
	})
}

// Kill stops the programs, then sends SIGTERM to the daemon itself.
func (c *Controller) Kill(ctx context.Context) error {
	return c.record(ctx, VerbKill, func() (string, error) {
		status, stopErr := c.stop(ctx)

		probe := c.Status()
		if !probe.PIDFile {
			return status, stopErr
		}
		if !probe.Running() {
			c.Out.Println("Supervisor PID exists but process is not running.")
			return status, stopErr
		}

		c.Out.Printf("Killing supervisor process %d...\n", probe.PID)
		terminate := c.Terminate
		if terminate == nil {
			terminate = func(int) error { return nil }
		}
		return history.StatusSuccess, errors.Join(stopErr, terminate(probe.PID))
	})
}

func (c *Controller) ctl(ctx context.Context, action string) error {
	return c.run(ctx, []string{"supervisorctl", "-c", c.Group.ConfigPath, action, "all"})
}

func (c *Controller) run(ctx context.Context, cmd []string) error {
	base := os.Environ()
	if c.Environ != nil {
		base = c.Environ()
	}
	c.logger().Debug("running command", "group", c.Group.Name, "command", cmdutil.FormatCommand(cmd))

	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	_, err := c.Runner.Run(ctx, cmdutil.ExecOptions{
		Env:    c.Group.Environ(base),
		Stdout: c.Out.Writer(),
		Stderr: stderr,
	}, cmd)
	return err
}

func (c *Controller) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
	}
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// record runs fn and stores the outcome. Recording failures are logged only.
func (c *Controller) record(ctx context.Context, action string, fn func() (string, error)) error {
	event := &history.Event{
		Action:    action,
		Target:    c.Group.Name,
		StartedAt: time.Now().UTC(),
	}

	status, err := fn()
	event.Status = status
	event.Finish(err)

	if c.Recorder != nil {
		if _, recErr := c.Recorder.RecordEvent(ctx, event); recErr != nil {
			c.logger().Warn("failed to record event", "action", action, "group", c.Group.Name, "error", recErr)
		}
	}
	return err
}
