package cli

import (
	"io"
	"sort"
	"strings"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/forcefield"
	"github.com/spf13/cobra"
)

var setNames = []struct{ ref, title string }{
	{top.AtomTypeSet, "atom types"},
	{top.BondTypeSet, "bond types"},
	{top.AngleTypeSet, "angle types"},
	{top.DihedralTypeSet, "dihedral types"},
	{top.ImproperTypeSet, "improper types"},
}

func sortedKeys[V any](m map[string]V) []string {
	r := make([]string, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

func printInfo(w io.Writer, F *forcefield.ForceField) {
	p := func(format string, a ...any) { io.WriteString(w, sf(format, a...)) }
	p("%s\n", F)
	p("units:\n")
	for _, k := range sortedKeys(F.Units) {
		p("  %-12s %s\n", k, F.Units[k])
	}
	p("scaling factors:\n")
	for _, k := range sortedKeys(F.ScalingFactors) {
		p("  %-22s %g\n", k, F.ScalingFactors[k])
	}
	if classes := F.AtomClassGroups(); len(classes) > 0 {
		p("atom classes:\n")
		for _, c := range sortedKeys(classes) {
			names := make([]string, 0, len(classes[c]))
			for _, at := range classes[c] {
				names = append(names, at.Name())
			}
			p("  %-8s %s\n", c, strings.Join(names, " "))
		}
	}
	for _, s := range setNames {
		groups := F.GroupByExpression(s.ref)
		if len(groups) == 0 {
			continue
		}
		p("%s:\n", s.title)
		for _, e := range sortedKeys(groups) {
			p("  %s\n    %s\n", e, strings.Join(groups[e], " "))
		}
	}
}

func newInfoCmd(A *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Summarize a force field",
		Long:  "Loads the files as one force field, later files overriding earlier ones, and prints its contents.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			F, err := forcefield.FromXMLOptions(A.loadOptions(), args...)
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), F)
			return nil
		},
	}
}
