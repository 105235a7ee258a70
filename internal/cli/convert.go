package cli

import (
	"fmt"
	"os"
	"strings"

	top "github.com/rmera/gotop"
	"github.com/rmera/gotop/forcefield"
	"github.com/rmera/gotop/gro"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sf = fmt.Sprintf

func writeAtomTypes(F *forcefield.ForceField, path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return &top.ForceFieldError{Msg: sf("file %s already exists, use --overwrite to replace it", path)}
	}
	ats := make([]*top.AtomType, 0, len(F.AtomTypes))
	for _, k := range sortedKeys(F.AtomTypes) {
		ats = append(ats, F.AtomTypes[k])
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gro.WriteAtomTypes(f, ats); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func newConvertCmd(A *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "convert IN... OUT",
		Short: "Convert force field files",
		Long: "Loads the IN files as one force field and writes it to OUT. OUT can be\n" +
			"a force field XML file (.xml, .xml.gz or .xml.zst) or, for force fields\n" +
			"with Lennard-Jones atom types, a Gromacs [ atomtypes ] block (.itp).",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[:len(args)-1], args[len(args)-1]
			F, err := forcefield.FromXMLOptions(A.loadOptions(), in...)
			if err != nil {
				return err
			}
			if strings.HasSuffix(strings.ToLower(out), ".itp") {
				err = writeAtomTypes(F, out, overwrite)
			} else {
				err = F.Save(out, overwrite)
			}
			if err != nil {
				return err
			}
			A.log.Info("force field converted", zap.Strings("in", in), zap.String("out", out))
			cmd.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace OUT if it exists")
	return cmd
}
