package main

import (
	"fmt"
	"os"

	"licman/internal/console"
	"licman/internal/history"
	"licman/internal/security"
	"licman/internal/server"
	"licman/internal/supervisor"

	"github.com/spf13/cobra"
)

var (
	serve bool
	host  string
	port  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the web and queue process groups",
	Long: `Probe the PID file of every process group and print its state.

With --serve, expose the same information over HTTP:
  GET /health           liveness and group list
  GET /status           state and latest event of every group
  GET /status/{group}   state, latest event and recent events of one group`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&serve, "serve", false, "Serve status over HTTP until interrupted")
	statusCmd.Flags().StringVar(&host, "host", getEnvOrDefault("LICMAN_STATUS_HOST", "127.0.0.1"), "Host to bind to")
	statusCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("LICMAN_STATUS_PORT", 6162), "Port to listen on")
}

func runStatus(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	if !serve {
		printStatus(console.Stdout(), registry, supervisor.ProcessAlive)
		return nil
	}

	if err := security.ValidateHost(host); err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}

	hist, err := history.NewHistory(layout.HistoryDB())
	if err != nil {
		return fmt.Errorf("failed to initialize history database: %w", err)
	}
	defer hist.Close()

	srv := server.NewServer(registry, hist, logger)
	fmt.Fprintf(os.Stdout, "Serving status on http://%s:%d\n", host, port)
	if err := srv.Serve(cmd.Context(), host, port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func printStatus(out *console.Printer, registry *supervisor.Registry, alive func(int) bool) {
	for _, name := range registry.List() {
		g, err := registry.Get(name)
		if err != nil {
			continue
		}
		st := supervisor.Probe(g.PIDPath, alive)
		switch {
		case st.Running():
			out.OK(fmt.Sprintf("%s: running (pid %d)", name, st.PID))
		case st.PIDFile:
			out.Warning(fmt.Sprintf("%s: not running (stale PID file %s)", name, g.PIDPath))
		default:
			out.Warning(name + ": not running")
		}
	}
}
