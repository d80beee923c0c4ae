// Package configure runs the interactive and non-interactive configuration
// of a licman project root: prompts, defaults, derived values, the YAML
// file, src/.env and the rendered service templates.
package configure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"licman/internal/config"
	"licman/internal/console"
	"licman/internal/history"
	"licman/internal/security"
	"licman/pkg/cmdutil"
	"licman/pkg/templates"
)

// Event target used for configure runs.
const (
	ActionConfigure = "configure"
	TargetConfig    = "config"
)

// Recorder stores configure events.
type Recorder interface {
	RecordEvent(ctx context.Context, e *history.Event) (int64, error)
}

// Configurator holds everything one configure run touches.
type Configurator struct {
	Layout  config.Layout
	Loader  *config.Loader
	Runtime config.Runtime

	Out      *console.Printer
	Prompter *Prompter
	Stdin    io.Reader
	Stderr   io.Writer

	// Runner and Executable run the post-configuration steps.
	Runner     cmdutil.Runner
	Executable string

	Recorder Recorder
	Logger   *slog.Logger
}

// New returns a Configurator for layout attached to the process streams.
func New(layout config.Layout) *Configurator {
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}
	return &Configurator{
		Layout:     layout,
		Loader:     config.NewLoader(layout),
		Runtime:    config.DefaultRuntime(),
		Out:        console.Stdout(),
		Prompter:   NewPrompter(os.Stdin, os.Stdout),
		Stdin:      os.Stdin,
		Stderr:     os.Stderr,
		Runner:     cmdutil.Exec,
		Executable: exe,
		Logger:     slog.Default(),
	}
}

func (c *Configurator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Run performs one configuration pass and records its outcome.
func (c *Configurator) Run(ctx context.Context, interactive bool) error {
	event := &history.Event{
		Action:    ActionConfigure,
		Target:    TargetConfig,
		StartedAt: time.Now().UTC(),
		Status:    history.StatusSuccess,
	}

	err := c.run(ctx, interactive)
	event.Finish(err)

	if c.Recorder != nil {
		if _, recErr := c.Recorder.RecordEvent(ctx, event); recErr != nil {
			c.logger().Warn("failed to record event", "action", ActionConfigure, "error", recErr)
		}
	}
	return err
}

func (c *Configurator) run(ctx context.Context, interactive bool) error {
	c.Out.Splash(c.Layout.LicenseFile())

	cfg, err := c.Loader.Load()
	if err != nil {
		return err
	}

	if interactive {
		c.Out.Printf("\n=== Interactive Configuration ===\n\n")
		if err := PromptDjango(c.Prompter, &cfg.Django, c.Layout, c.Runtime.Secrets); err != nil {
			return err
		}
	} else {
		c.Out.Println("\n=== Non-Interactive Configuration ===\nUsing defaults or pre-existing values.")
	}

	merged, err := config.MergeDefaults(cfg, c.Layout, c.Runtime)
	if err != nil {
		return err
	}
	final, err := config.Derive(merged, c.Layout, c.Runtime)
	if err != nil {
		return err
	}
	c.warnWeakSecrets(final)

	path, err := c.Loader.Save(final)
	if err != nil {
		return err
	}
	if err := security.ValidateSecurePermissions(path); err != nil {
		c.Out.Warn("%v", err)
	}
	c.logger().Info("configuration saved", "path", path)

	c.Out.Println("Writing .env file...")
	pairs, err := final.EnvPairs()
	if err != nil {
		return err
	}
	if err := config.WriteDotEnv(c.Layout.EnvFile(), pairs); err != nil {
		return err
	}

	c.Out.Println("🛠️ Writing config files...")
	flat, err := final.Flatten()
	if err != nil {
		return err
	}
	results, err := RenderAll(TemplatePairs(c.Layout), templates.TemplateData(flat))
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Skipped {
			c.logger().Debug("template source missing", "template", r.Pair.Name, "path", r.Pair.Src)
			continue
		}
		if len(r.Unreplaced) > 0 {
			c.Out.Warn("Warning: Unreplaced placeholders in %s: %s", r.Pair.Src, strings.Join(r.Unreplaced, ", "))
		}
		c.logger().Debug("rendered template", "template", r.Pair.Name, "path", r.Pair.Dst)
	}

	c.Out.Done("Configuration complete.")

	if !interactive {
		return nil
	}
	return c.postSteps(ctx)
}

func (c *Configurator) warnWeakSecrets(cfg *config.Config) {
	secrets := []struct {
		name  string
		value string
	}{
		{"DJANGO_SECRET_KEY", cfg.Django.SecretKey},
		{"SUPERVISORCTL_SECRET", cfg.Supervisord.Secret},
		{"QUEUECTL_SECRET", cfg.QueueManager.Secret},
	}
	for _, s := range secrets {
		if security.IsWeakSecret(s.value) {
			c.Out.Warn("%s looks weak: %v", s.name, describeWeakness(s.value))
		}
	}
}

func describeWeakness(secret string) error {
	if err := security.ValidateSecret(secret); err != nil {
		return err
	}
	return fmt.Errorf("secret is predictable")
}
