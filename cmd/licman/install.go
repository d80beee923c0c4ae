package main

import (
	"fmt"
	"os"

	"licman/internal/install"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	pipArgs       string
	pythonVersion string
	dhOverwrite   bool
	dhBits        int
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install system packages, the Python runtime and the virtualenv",
	Long: `Provision the project root. Components run in order:

  system    apt packages needed to build Python and run the services
  python    build opt/Python-<version>.tgz into opt/python, create opt/venv
            and install requirements.txt
  cleanup   remove opt/Python-* build directories

--<component> runs only that component and rebuilds what already exists.
--skip-<component> leaves one out.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

var dhpCmd = &cobra.Command{
	Use:   "dhp",
	Short: "Generate Diffie-Hellman parameters for nginx",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := install.NewDHParams(layout, os.Stdout)
		d.Bits = dhBits
		d.Overwrite = dhOverwrite
		return d.Generate(cmd.Context())
	},
}

func init() {
	addComponentFlags(installCmd.Flags())
	installCmd.Flags().StringVar(&pipArgs, "pip-args", getEnvOrDefault("LICMAN_PIP_ARGS", ""), "Extra arguments for pip install -r requirements.txt")
	installCmd.Flags().StringVar(&pythonVersion, "python-version", install.DefaultPythonVersion, "Python version to build")

	dhpCmd.Flags().BoolVar(&dhOverwrite, "overwrite", false, "Regenerate an existing parameter file")
	dhpCmd.Flags().IntVar(&dhBits, "bitdepth", getEnvOrDefaultInt("LICMAN_DH_BITS", install.DefaultDHBits), "Size of the parameters in bits")
}

func runInstall(cmd *cobra.Command, args []string) error {
	opts, err := install.ParseOptions(componentArgs(cmd.Flags()))
	if err != nil {
		return err
	}

	cfg := install.NewConfig(layout)
	cfg.PythonVersion = pythonVersion
	if err := cfg.SetPipArgs(pipArgs); err != nil {
		return err
	}

	installer := install.New(cfg, opts, os.Stdout)
	installer.Logger = logger
	if err := installer.Run(cmd.Context()); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}
	return nil
}

func addComponentFlags(flags *pflag.FlagSet) {
	for _, c := range install.Components {
		flags.Bool(c, false, fmt.Sprintf("Run only the %s component (forces a rebuild)", c))
		flags.Bool("skip-"+c, false, fmt.Sprintf("Skip the %s component", c))
	}
}

// componentArgs turns the component flags that were set into
// --<component> and --skip-<component> arguments, selections first.
func componentArgs(flags *pflag.FlagSet) []string {
	var selected, skipped []string
	for _, c := range install.Components {
		if on, _ := flags.GetBool(c); on {
			selected = append(selected, "--"+c)
		}
		if on, _ := flags.GetBool("skip-" + c); on {
			skipped = append(skipped, "--skip-"+c)
		}
	}
	return append(selected, skipped...)
}
