package main

import (
	"fmt"
	"os"

	"licman/internal/config"
	"licman/internal/supervisor"

	"github.com/spf13/cobra"
)

func newGroupCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [start|stop|restart|kill|help]",
		Short: short,
		Long: short + `.

  start      Start supervisord, or all services when it is already running
  stop       Stop all services via supervisorctl
  restart    Restart all services via supervisorctl
  kill       Stop services and terminate supervisord
  help       Show the usage text`,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verb := ""
			if len(args) > 0 {
				verb = args[0]
			}
			return runGroup(cmd, name, verb)
		},
	}
}

func runGroup(cmd *cobra.Command, name, verb string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	group, err := registry.Get(name)
	if err != nil {
		return err
	}

	ctl := supervisor.NewController(group, os.Stdout)
	ctl.Logger = logger

	if verb != supervisor.VerbHelp && verb != "" {
		if hist := openHistory(); hist != nil {
			defer hist.Close()
			ctl.Recorder = hist
		}
	}

	logger.Debug("dispatching", "group", name, "verb", verb)
	return ctl.Dispatch(cmd.Context(), verb)
}

// loadRegistry builds the web and queue groups from the saved
// configuration, with defaults and derived values applied in memory.
func loadRegistry() (*supervisor.Registry, error) {
	rt := config.DefaultRuntime()

	cfg, err := config.NewLoader(layout).Load()
	if err != nil {
		return nil, err
	}
	merged, err := config.MergeDefaults(cfg, layout, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	final, err := config.Derive(merged, layout, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive settings: %w", err)
	}
	return supervisor.DefaultRegistry(layout, final, rt.User, rt.Path), nil
}
