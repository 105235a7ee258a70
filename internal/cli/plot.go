package cli

import (
	"fmt"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/ffplot"
	"github.com/rmera/gotop/forcefield"
	"github.com/rmera/gotop/units"
	"github.com/spf13/cobra"
)

type plotFlags struct {
	kind, unit, energy, out, variable string
	from, to                          float64
	points                            int
	width, height                     float64
}

func lookup(F *forcefield.ForceField, kind, key string) (top.Potential, error) {
	var p top.Potential
	var ok bool
	switch kind {
	case "atom":
		var at *top.AtomType
		at, ok = F.AtomTypes[key]
		p = at
	case "bond":
		p, ok = F.BondTypes[key]
	case "angle":
		p, ok = F.AngleTypes[key]
	case "dihedral":
		p, ok = F.DihedralTypes[key]
	case "improper":
		p, ok = F.ImproperTypes[key]
	default:
		return nil, fmt.Errorf("unknown kind %q, use atom, bond, angle, dihedral or improper", kind)
	}
	if !ok {
		return nil, fmt.Errorf("no %s type %q in force field %s", kind, key, F.Name)
	}
	return p, nil
}

func (P plotFlags) options(cmd *cobra.Command, points int) (ffplot.Options, error) {
	o := ffplot.Options{Variable: P.variable, Points: points}
	if cmd.Flags().Changed("points") {
		o.Points = P.points
	}
	if P.energy != "" {
		u, err := units.Parse(P.energy)
		if err != nil {
			return o, err
		}
		o.Energy = u
	}
	if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
		if P.unit == "" {
			return o, fmt.Errorf("--unit is required with --from and --to")
		}
		u, err := units.Parse(P.unit)
		if err != nil {
			return o, err
		}
		o.From, o.To = units.Q(P.from, u), units.Q(P.to, u)
	}
	return o, nil
}

func newPlotCmd(A *app) *cobra.Command {
	var P plotFlags
	cmd := &cobra.Command{
		Use:   "plot FILE KEY...",
		Short: "Plot the energy of force field types",
		Long: "Plots, in one image, the energy of the types of the given kind with the\n" +
			"given keys. Connection types are keyed by their member types joined\n" +
			"with " + forcefield.KeySeparator + ". The format is taken from the extension of --out.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			F, err := forcefield.FromXMLOptions(A.loadOptions(), args[0])
			if err != nil {
				return err
			}
			ps := make([]top.Potential, 0, len(args)-1)
			for _, key := range args[1:] {
				p, err := lookup(F, P.kind, key)
				if err != nil {
					return err
				}
				ps = append(ps, p)
			}
			o, err := P.options(cmd, A.cfg.Plot.Points)
			if err != nil {
				return err
			}
			pl, err := ffplot.Energy(sf("%s %s types", F.Name, P.kind), o, ps...)
			if err != nil {
				return err
			}
			if err := ffplot.Save(pl, P.width, P.height, P.out); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", P.out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&P.kind, "kind", "atom", "kind of type: atom, bond, angle, dihedral or improper")
	f.StringVar(&P.variable, "variable", "", "independent variable, if the potential has more than one")
	f.Float64Var(&P.from, "from", 0, "start of the range")
	f.Float64Var(&P.to, "to", 0, "end of the range")
	f.StringVar(&P.unit, "unit", "", "unit of --from and --to")
	f.StringVar(&P.energy, "energy", "kJ/mol", "energy unit")
	f.IntVar(&P.points, "points", ffplot.DefaultPoints, "number of points per curve")
	f.StringVarP(&P.out, "out", "o", "energy.png", "output image")
	f.Float64Var(&P.width, "width", 5, "width in inches")
	f.Float64Var(&P.height, "height", 4, "height in inches")
	return cmd
}
