package cli

import (
	"fmt"

	"github.com/rmera/gotop/forcefield"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newValidateCmd(A *app) *cobra.Command {
	var strict, greedy bool
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate force field XML files",
		Long: "Checks each file against the force field schema and, when strict,\n" +
			"that every type referenced by a connection type is defined.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := forcefield.ValidateOptions{Strict: A.cfg.Validate.Strict, Greedy: A.cfg.Validate.Greedy}
			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if cmd.Flags().Changed("greedy") {
				opts.Greedy = greedy
			}
			failed := 0
			for _, path := range args {
				if err := forcefield.ValidateFile(path, opts); err != nil {
					failed++
					A.log.Debug("validation failed", zap.String("path", path), zap.Error(err))
					cmd.Printf("%s: %v\n", path, err)
					continue
				}
				cmd.Printf("%s: ok\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", true, "check that connection types only use defined atom types")
	cmd.Flags().BoolVar(&greedy, "greedy", false, "report every missing atom type, not only the first")
	return cmd
}
