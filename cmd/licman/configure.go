package main

import (
	"licman/internal/configure"
	"licman/internal/history"

	"github.com/spf13/cobra"
)

var nonInteractive bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Generate .licman-cfg.yml, src/.env and the service configuration",
	Long: `Build the configuration from .licman-cfg.yml, defaults and derived values,
then write src/.env and render the nginx, supervisord and Celery templates
found under etc/.

On a terminal the Django settings are prompted for and the database
migrations, superuser and seed routines are offered afterwards. Without a
terminal, or with --non-interactive, existing values and defaults are used.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVarP(&nonInteractive, "non-interactive", "n", false, "Use defaults and existing values without prompting")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	c := configure.New(layout)
	c.Logger = logger

	if hist := openHistory(); hist != nil {
		defer hist.Close()
		c.Recorder = hist
	}

	interactive := !nonInteractive && configure.IsInteractive()
	return c.Run(cmd.Context(), interactive)
}

// openHistory opens the event database. Failures are logged and yield nil;
// commands then run without recording.
func openHistory() *history.History {
	hist, err := history.NewHistory(layout.HistoryDB())
	if err != nil {
		logger.Warn("event history unavailable", "db", layout.HistoryDB(), "error", err)
		return nil
	}
	return hist
}
