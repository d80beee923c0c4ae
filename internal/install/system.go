package install

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"licman/internal/security"
	"licman/pkg/cmdutil"
)

// openLog opens the installation log in append mode and writes a start
// marker.
func (i *Installer) openLog(path string) error {
	f, err := security.OpenAppendFile(path, security.PermLogFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	i.logFile = f
	i.log = f

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(i.log, "\n=== Installation started at %s ===\n\n", timestamp)
	return nil
}

// closeLog writes the completion marker and closes the log.
func (i *Installer) closeLog() {
	if i.logFile == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(i.log, "\n=== Installation completed at %s ===\n\n", timestamp)
	i.logFile.Close()
	i.logFile = nil
	i.log = io.Discard
}

func (i *Installer) logf(format string, args ...any) {
	if i.log != nil {
		fmt.Fprintf(i.log, format, args...)
	}
}

// redact masks credentials passed through --pip-args.
func (i *Installer) redact(s string) string {
	return string(cmdutil.SanitizeOutput([]byte(s), i.Config.Secrets()))
}

// run announces and executes cmd in dir. Output goes to the terminal and
// the install log.
func (i *Installer) run(ctx context.Context, dir string, cmd ...string) error {
	formatted := i.redact(cmdutil.FormatCommand(cmd))
	i.Out.Step("%s", formatted)
	i.logf("[CMD] %s\n", formatted)

	log := i.log
	if log == nil {
		log = io.Discard
	}
	out := io.MultiWriter(i.Out.Writer(), log)

	_, err := i.Runner.Run(ctx, cmdutil.ExecOptions{
		Dir:    dir,
		Stdout: out,
		Stderr: out,
	}, cmd)
	if err != nil {
		i.logf("[ERROR] Command failed: %v\n\n", err)
		return fmt.Errorf("command failed: %s: %w", formatted, err)
	}

	i.logf("[OK]\n\n")
	return nil
}

// runQuiet executes cmd without showing output and reports success.
func (i *Installer) runQuiet(ctx context.Context, cmd ...string) bool {
	i.logf("[CMD] %s\n", i.redact(cmdutil.FormatCommand(cmd)))
	result, err := i.Runner.Run(ctx, cmdutil.ExecOptions{CombinedOutput: true}, cmd)
	if result != nil && len(result.Output) > 0 {
		i.logf("%s\n", result.Output)
	}
	if err != nil {
		i.logf("[ERROR] Command failed: %v\n\n", err)
		return false
	}
	i.logf("[OK]\n\n")
	return true
}

// installSystem refreshes apt and installs every package dpkg does not
// already know about.
func (i *Installer) installSystem(ctx context.Context) error {
	i.Out.Println("🔒 Sudo is required for system package installation.")
	if err := i.run(ctx, "", "sudo", "apt-get", "update"); err != nil {
		return err
	}

	var missing []string
	for _, pkg := range i.Config.Packages {
		if i.runQuiet(ctx, "dpkg", "-s", pkg) {
			i.Out.Success("%s already installed, skipping.", pkg)
			continue
		}
		missing = append(missing, pkg)
	}

	if len(missing) == 0 {
		i.Out.Done("All system packages already installed.")
		return nil
	}

	i.Out.Println("📦 Installing missing packages: " + strings.Join(missing, " "))
	return i.run(ctx, "", append([]string{"sudo", "apt-get", "install", "-y"}, missing...)...)
}
