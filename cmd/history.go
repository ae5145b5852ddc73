package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/storage"
)

func newHistoryCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history PATH",
		Short: "List the imports recorded in a store",
		Long: `List every import root created in a store, with the source store ID and
counts. The import log is not encrypted, so no password is needed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			a.log.Debug("read import log", "path", args[0], "imports", len(rec.Imports))

			if jsonOut {
				imports := rec.Imports
				if imports == nil {
					imports = []storage.ImportRecord{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(imports)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store %s (created %s)\n", rec.StoreID, rec.Created.Local().Format(time.DateTime))
			if len(rec.Imports) == 0 {
				fmt.Fprintln(out, "No imports")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "IMPORTED\tGROUP\tROOT\tSOURCE\tGROUPS\tENTRIES")
			for _, ir := range rec.Imports {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
					ir.At.Local().Format(time.DateTime), ir.TargetGroup, ir.Root, ir.SourceID, ir.Groups, ir.Entries)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the import log as JSON")
	return cmd
}
