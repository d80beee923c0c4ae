package main

import (
	"os"

	"licman/internal/config"
	"licman/internal/django"

	"github.com/spf13/cobra"
)

var adminUpdate bool

var adminUserCmd = &cobra.Command{
	Use:   "adminuser",
	Short: "Create or update the Django superuser",
	Long: `Create the Django superuser from ADMIN_USERNAME, ADMIN_EMAIL and
ADMIN_PASSWORD in .licman-cfg.yml. An existing user is left alone unless
--update is given, which resets its email and password.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(layout).Load()
		if err != nil {
			return err
		}
		return djangoManager().AdminUser(cmd.Context(), cfg.Django, adminUpdate)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Django database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return djangoManager().Migrate(cmd.Context())
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run the data seed routines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return djangoManager().Seed(cmd.Context())
	},
}

var staticCmd = &cobra.Command{
	Use:   "static",
	Short: "Collect Django static files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return djangoManager().Static(cmd.Context())
	},
}

var cleanCacheCmd = &cobra.Command{
	Use:   "cleancache",
	Short: "Remove __pycache__ directories from the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return djangoManager().CleanCache()
	},
}

func init() {
	adminUserCmd.Flags().BoolVar(&adminUpdate, "update", false, "Update the email and password of an existing superuser")
}

func djangoManager() *django.Manager {
	m := django.NewManager(layout, os.Stdout)
	m.Logger = logger
	return m
}
