package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"licman/internal/config"
	"licman/internal/configure"
	"licman/pkg/cmdutil"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var (
	rootDir  string
	logFile  string
	logLevel string

	layout    config.Layout
	logger    = slog.New(slog.NewTextHandler(io.Discard, nil))
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "licman",
	Short: "Provisioning, configuration and process control for licman",
	Long: `licman installs the Python runtime, renders the nginx, supervisord and
Celery configuration from .licman-cfg.yml, runs the Django management
routines and starts or stops the web and queue process groups.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		if !alreadyReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	// Set custom usage template to encourage 'help' subcommand pattern
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: $LICMAN_ROOT, the parent of bin/, or the working directory)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", getEnvOrDefault("LICMAN_LOG_FILE", ""), "Also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", getEnvOrDefault("LICMAN_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	// Register subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(newGroupCmd("web", "Control the web process group (nginx, gunicorn)"))
	rootCmd.AddCommand(newGroupCmd("queue", "Control the Celery queue process group"))
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(dhpCmd)
	rootCmd.AddCommand(adminUserCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(staticCmd)
	rootCmd.AddCommand(cleanCacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
}

// setup resolves the project root and configures logging before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}

	l, closer, err := setupLogging(os.Stderr, logFile, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger, logCloser = l, closer
	slog.SetDefault(logger)

	root, err := config.ResolveRoot(rootDir)
	if err != nil {
		return err
	}
	layout = config.NewLayout(root)
	logger.Debug("resolved project root", "root", root, "command", cmd.Name())
	return nil
}

// exitCode maps err to the process exit status. Subprocess failures keep
// their own code.
func exitCode(err error) int {
	if code, ok := cmdutil.ExitCode(err); ok && code != 0 {
		return code
	}
	return 1
}

// alreadyReported is true for errors whose message was printed where they
// happened.
func alreadyReported(err error) bool {
	var step *configure.StepError
	return errors.Is(err, configure.ErrRequiredField) || errors.As(err, &step)
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
