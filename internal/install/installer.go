// Package install provisions the build dependencies, the Python runtime and
// the application virtualenv of a licman project root.
package install

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"licman/internal/console"
	"licman/pkg/cmdutil"
)

// Installer manages the installation process
type Installer struct {
	Config  *Config
	Options Options

	Runner cmdutil.Runner
	Out    *console.Printer
	Logger *slog.Logger

	logFile *os.File
	log     io.Writer
}

// New creates a new installer instance
func New(cfg *Config, opts Options, out io.Writer) *Installer {
	return &Installer{
		Config:  cfg,
		Options: opts,
		Runner:  cmdutil.Exec,
		Out:     console.New(out),
		Logger:  slog.Default(),
		log:     io.Discard,
	}
}

func (i *Installer) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

// LogPath is the install log below var/log.
func (i *Installer) LogPath() string {
	return filepath.Join(i.Config.Layout.Log, "install.log")
}

// Run executes the selected components in order. The first failure aborts
// the run.
func (i *Installer) Run(ctx context.Context) error {
	if err := os.MkdirAll(i.Config.Layout.Log, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	if err := i.openLog(i.LogPath()); err != nil {
		return err
	}
	defer i.closeLog()

	i.Out.Println()
	i.Out.Println("===========================================")
	i.Out.Println("==    licman installation starting...    ==")
	i.Out.Println("===========================================")
	i.Out.Println()

	steps := []struct {
		name  string
		label string
		fn    func(context.Context) error
	}{
		{ComponentSystem, "System packages", i.installSystem},
		{ComponentPython, "Python runtime and virtualenv", func(ctx context.Context) error {
			return i.installPython(ctx, i.Options.Force)
		}},
		{ComponentCleanup, "Build directory cleanup", func(context.Context) error {
			return i.cleanup()
		}},
	}

	for _, step := range steps {
		if !i.Options.Selected[step.name] {
			i.logger().Debug("skipping component", "component", step.name)
			continue
		}
		i.logger().Info("installing component", "component", step.name, "force", i.Options.Force)
		if err := step.fn(ctx); err != nil {
			i.Out.Fail(step.label)
			return fmt.Errorf("%s: %w", step.name, err)
		}
		i.Out.OK(step.label)
	}

	i.printSummary()
	return nil
}

func (i *Installer) printSummary() {
	l := i.Config.Layout

	i.Out.Println()
	i.Out.Println("==========================================")
	i.Out.Println("  licman installation complete!")
	i.Out.Println("==========================================")
	i.Out.Println()
	i.Out.Printf("  Python:     %s\n", i.Config.PythonBin())
	i.Out.Printf("  Virtualenv: %s\n", l.Venv())
	i.Out.Printf("  Log:        %s\n", i.LogPath())
	i.Out.Println()
	i.Out.Println("Next Steps:")
	i.Out.Println("  1. Configure: licman configure")
	i.Out.Println("  2. Start web: licman web start")
	i.Out.Println("  3. Start queue: licman queue start")
	i.Out.Println()
}
