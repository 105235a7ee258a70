package cli

import (
	"github.com/rmera/gotop/gro"
	"github.com/spf13/cobra"
)

func newGroCmd(A *app) *cobra.Command {
	var defines []string
	var noIncludes bool
	cmd := &cobra.Command{
		Use:   "gro IN [OUT]",
		Short: "Read a Gromacs topology and optionally write it back",
		Long: "Reads a Gromacs .top or .itp file into a typed topology and prints a\n" +
			"summary. With OUT, the topology is written as a single molecule type,\n" +
			"which fails if some potential can't be expressed in Gromacs terms.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			T, err := gro.ReadFile(args[0], !noIncludes, defines...)
			if err != nil {
				return err
			}
			defer T.Close()
			cmd.Printf("%s: %d sites, %d bonds, %d angles, %d dihedrals, %d impropers\n",
				T.Name, T.NSites(), len(T.Bonds()), len(T.Angles()), len(T.Dihedrals()), len(T.Impropers()))
			cmd.Printf("%d atom types, %d bond types, %d angle types, %d dihedral types, %d improper types\n",
				len(T.AtomTypes()), len(T.BondTypes()), len(T.AngleTypes()), len(T.DihedralTypes()), len(T.ImproperTypes()))
			cmd.Printf("typed: %v, combining rule: %s\n", T.IsTyped(), T.CombiningRule())
			if len(args) == 1 {
				return nil
			}
			if err := gro.WriteFile(args[1], T); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&defines, "define", "D", nil, "preprocessor flags to define, as in -DFLEXIBLE")
	cmd.Flags().BoolVar(&noIncludes, "no-includes", false, "don't follow #include directives")
	return cmd
}
