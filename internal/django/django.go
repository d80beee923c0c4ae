// Package django wraps the manage.py commands licman runs against the
// backend: migrations, seeding, static files and the admin account.
package django

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"licman/internal/config"
	"licman/internal/console"
	"licman/pkg/cmdutil"
	"licman/pkg/fileutil"
)

// SettingsModule is the Django settings module of the backend.
const SettingsModule = "config.settings"

// Manager runs manage.py commands for one project root.
type Manager struct {
	Layout config.Layout

	Runner  cmdutil.Runner
	Out     *console.Printer
	Stderr  io.Writer
	Environ func() []string
	Logger  *slog.Logger
}

// NewManager returns a Manager for layout writing to out.
func NewManager(layout config.Layout, out io.Writer) *Manager {
	return &Manager{
		Layout:  layout,
		Runner:  cmdutil.Exec,
		Out:     console.New(out),
		Stderr:  os.Stderr,
		Environ: os.Environ,
		Logger:  slog.Default(),
	}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// commandEnv is the process environment with the venv first on PATH and the
// backend importable. fill only adds variables that are not already set;
// set replaces them.
func (m *Manager) commandEnv(fill, set map[string]string) []string {
	base := os.Environ()
	if m.Environ != nil {
		base = m.Environ()
	}

	path := m.Layout.VenvBin()
	for _, entry := range base {
		if current, ok := strings.CutPrefix(entry, "PATH="); ok {
			path = path + ":" + current
			break
		}
	}

	overrides := map[string]string{
		"PATH":                   path,
		"PYTHONPATH":             m.Layout.Backend(),
		"DJANGO_SETTINGS_MODULE": SettingsModule,
	}
	keys := []string{"PATH", "PYTHONPATH", "DJANGO_SETTINGS_MODULE"}
	for _, k := range slices.Sorted(maps.Keys(fill)) {
		if _, ok := overrides[k]; ok || hasKey(base, k) {
			continue
		}
		keys = append(keys, k)
		overrides[k] = fill[k]
	}
	for _, k := range slices.Sorted(maps.Keys(set)) {
		if _, ok := overrides[k]; !ok {
			keys = append(keys, k)
		}
		overrides[k] = set[k]
	}
	return cmdutil.MergeEnv(base, overrides, keys)
}

func hasKey(env []string, key string) bool {
	for _, entry := range env {
		if name, _, _ := strings.Cut(entry, "="); name == key {
			return true
		}
	}
	return false
}

// manage runs "python manage.py args..." with output attached to the console.
func (m *Manager) manage(ctx context.Context, fill, set map[string]string, args ...string) error {
	managePy := m.Layout.ManagePy()
	if !fileutil.FileExists(managePy) {
		return fmt.Errorf("manage.py not found at: %s: %w", managePy, fs.ErrNotExist)
	}

	cmd := append([]string{m.Layout.VenvPython(), managePy}, args...)
	m.logger().Debug("running manage.py", "command", cmdutil.FormatCommand(cmd))

	stderr := m.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	_, err := m.Runner.Run(ctx, cmdutil.ExecOptions{
		Dir:    m.Layout.Backend(),
		Env:    m.commandEnv(fill, set),
		Stdout: m.Out.Writer(),
		Stderr: stderr,
	}, cmd)
	return err
}

// Migrate applies the database migrations.
func (m *Manager) Migrate(ctx context.Context) error {
	return m.manage(ctx, nil, nil, "migrate")
}

// Static collects static files with src/.env loaded into the environment.
func (m *Manager) Static(ctx context.Context) error {
	env, err := config.ReadDotEnv(m.Layout.EnvFile())
	if err != nil {
		return err
	}
	return m.manage(ctx, env, nil, "collectstatic", "--noinput")
}

// SeedStep is one labelled manage.py command run by Seed.
type SeedStep struct {
	Label string
	Args  []string
}

// SeedSteps run in order.
var SeedSteps = []SeedStep{
	{Label: "Initialize groups", Args: []string{"init_groups"}},
}

// Seed runs every seed step and stops at the first failure.
func (m *Manager) Seed(ctx context.Context) error {
	m.Out.Println("Running seed routines...")
	m.Out.Println()

	for _, step := range SeedSteps {
		m.Out.Step("%s", step.Label)
		if err := m.manage(ctx, nil, nil, step.Args...); err != nil {
			m.Out.Failed("Failed: %s\n  Error: %v", step.Label, err)
			return fmt.Errorf("seed step %q: %w", step.Label, err)
		}
		m.Out.Success("Done: %s\n", step.Label)
	}

	m.Out.Println("Seeding complete.")
	return nil
}

// CleanCache removes every __pycache__ directory below the backend.
func (m *Manager) CleanCache() error {
	backend := m.Layout.Backend()
	if !fileutil.DirExists(backend) {
		m.logger().Debug("backend directory missing, nothing to clean", "path", backend)
		return nil
	}

	removed, err := fileutil.RemoveDirsNamed(backend, "__pycache__")
	for _, dir := range removed {
		m.Out.Printf("...removing: %s...\n", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to clean cache: %w", err)
	}
	return nil
}
