package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/rmera/gotop/ffstore"
	"github.com/rmera/gotop/forcefield"
	"github.com/spf13/cobra"
)

func (A *app) withStore(ctx context.Context, f func(*ffstore.Store) error) error {
	S, err := ffstore.Open(ctx, A.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer S.Close()
	return f(S)
}

func newStoreCmd(A *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the force field library",
		Long:  "Keeps force fields in the SQLite database set by store.path (GOTOP_STORE_PATH).",
	}
	var overwrite bool
	get := &cobra.Command{
		Use:   "get NAME OUT",
		Short: "Write a stored force field to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return A.withStore(cmd.Context(), func(S *ffstore.Store) error {
				F, ok, err := S.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no force field %q in %s", args[0], S.Path())
				}
				if err := F.Save(args[1], overwrite); err != nil {
					return err
				}
				cmd.Printf("wrote %s\n", args[1])
				return nil
			})
		},
	}
	get.Flags().BoolVar(&overwrite, "overwrite", false, "replace OUT if it exists")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "put FILE...",
			Short: "Load force field files and store them as one force field",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				F, err := forcefield.FromXMLOptions(A.loadOptions(), args...)
				if err != nil {
					return err
				}
				return A.withStore(cmd.Context(), func(S *ffstore.Store) error {
					if err := S.Put(cmd.Context(), F); err != nil {
						return err
					}
					cmd.Printf("stored %s\n", F.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the stored force fields",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return A.withStore(cmd.Context(), func(S *ffstore.Store) error {
					list, err := S.List(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "NAME\tVERSION\tATOM TYPES\tCONNECTION TYPES\tUPDATED")
					for _, e := range list {
						fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", e.Name, e.Version, e.AtomTypes, e.ConnectionTypes, e.Updated.Format("2006-01-02 15:04:05"))
					}
					return w.Flush()
				})
			},
		},
		get,
		&cobra.Command{
			Use:     "rm NAME...",
			Aliases: []string{"delete"},
			Short:   "Remove force fields from the library",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return A.withStore(cmd.Context(), func(S *ffstore.Store) error {
					for _, name := range args {
						ok, err := S.Delete(cmd.Context(), name)
						if err != nil {
							return err
						}
						if !ok {
							return fmt.Errorf("no force field %q in %s", name, S.Path())
						}
						cmd.Printf("removed %s\n", name)
					}
					return nil
				})
			},
		},
	)
	return cmd
}
