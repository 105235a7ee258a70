// Package cli implements the gotop command.
package cli

import (
	"fmt"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/forcefield"
	"github.com/rmera/gotop/internal/config"
	"github.com/rmera/gotop/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

// app carries what the subcommands share once the root command has
// read the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func (A *app) init() error {
	cfg, err := config.Load(A.configPath)
	if err != nil {
		return err
	}
	if A.logLevel != "" {
		cfg.Log.Level = A.logLevel
		if err := cfg.Check(); err != nil {
			return err
		}
	}
	l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	A.cfg = cfg
	A.log = l
	top.SetLogger(l)
	return nil
}

func (A *app) loadOptions() forcefield.LoadOptions {
	return forcefield.LoadOptions{Validation: forcefield.ValidateOptions{
		Strict: A.cfg.Validate.Strict,
		Greedy: A.cfg.Validate.Greedy,
	}}
}

// NewRootCommand returns the gotop command with all its subcommands.
func NewRootCommand() *cobra.Command {
	A := &app{}
	cmd := &cobra.Command{
		Use:   "gotop",
		Short: "Force field and typed topology tools",
		Long: "gotop validates, inspects and converts force field XML files, plots\n" +
			"the potentials they define and keeps a library of them.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return A.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if A.log != nil {
				_ = A.log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&A.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&A.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the configuration")

	cmd.AddCommand(
		newValidateCmd(A),
		newInfoCmd(A),
		newConvertCmd(A),
		newPlotCmd(A),
		newStoreCmd(A),
		newGroCmd(A),
	)
	return cmd
}

// Execute runs the gotop command.
func Execute() error {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln(fmt.Sprintf("Error: %v", err))
		return err
	}
	return nil
}
