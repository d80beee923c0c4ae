package configure

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"licman/pkg/cmdutil"
	"licman/pkg/fileutil"

	"golang.org/x/term"
)

// StepError reports a post-configuration step that exited non-zero.
type StepError struct {
	Args []string
	Code int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", strings.Join(e.Args, " "), e.Code)
}

// Unwrap exposes the exit code to cmdutil.ExitCode.
func (e *StepError) Unwrap() error {
	return &cmdutil.ExitError{Code: e.Code}
}

const (
	migrateBanner = `
==================================================================
Database migrations create and update the tables the application
needs. Run them on a fresh install and after every upgrade.
==================================================================
`
	superuserBanner = `
=================================================================
A superuser can log into the admin site. The credentials come
from ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.
=================================================================
`
	seedBanner = `
==================================================================
The seed script creates the default user groups. It is safe to run
more than once.
==================================================================
`
)

// postSteps asks for and runs the follow-up commands of an interactive run.
func (c *Configurator) postSteps(ctx context.Context) error {
	c.Out.Printf("%s", migrateBanner)
	if c.Prompter.Confirm("Run Database Migrations?", true) {
		if err := c.runStep(ctx, "migrate"); err != nil {
			return err
		}
	}

	c.Out.Printf("%s", superuserBanner)
	switch {
	case c.Prompter.Confirm("Create superuser now?", false):
		if err := c.runStep(ctx, "adminuser"); err != nil {
			return err
		}
	case c.Prompter.Confirm("Update superuser instead?", false):
		if err := c.runStep(ctx, "adminuser", "--update"); err != nil {
			return err
		}
	}

	c.Out.Printf("%s", seedBanner)
	if c.Prompter.Confirm("Run seed script now?", true) {
		if err := c.runStep(ctx, "seed"); err != nil {
			return err
		}
	}
	return nil
}

// runStep re-invokes the licman executable with args, attached to the
// terminal and pinned to this root. A missing executable is a warning, not a
// failure.
func (c *Configurator) runStep(ctx context.Context, args ...string) error {
	if !fileutil.FileExists(c.Executable) {
		c.Out.Warn("Script not found at: %s", c.Executable)
		return nil
	}

	cmd := append([]string{c.Executable}, args...)
	c.logger().Debug("running post-configuration step", "command", cmdutil.FormatCommand(cmd))

	_, err := c.Runner.Run(ctx, cmdutil.ExecOptions{
		Dir:    c.Layout.Root,
		Env:    cmdutil.MergeEnv(os.Environ(), map[string]string{"LICMAN_ROOT": c.Layout.Root}, []string{"LICMAN_ROOT"}),
		Stdin:  c.stepStdin(),
		Stdout: c.Out.Writer(),
		Stderr: c.Stderr,
	}, cmd)
	if err == nil {
		return nil
	}

	code, ok := cmdutil.ExitCode(err)
	if !ok {
		return fmt.Errorf("failed to run %s: %w", cmdutil.FormatCommand(cmd), err)
	}
	c.Out.Error("Script failed with exit code %d", code)
	return &StepError{Args: args, Code: code}
}

// stepStdin returns the stdin handed to post-configuration steps. Only a
// terminal is shared: piped input may already sit in the Prompter's buffer.
func (c *Configurator) stepStdin() io.Reader {
	if f, ok := c.Stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return f
	}
	return nil
}
