package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/core"
)

type importOptions struct {
	sourceKeyfile string
	targetKeyfile string
	targetGroup   string
	backup        bool
	dryRun        bool
	jsonOut       bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import SOURCE TARGET",
		Short: "Import every group and entry of SOURCE into TARGET",
		Long: `Import the whole group tree of the SOURCE store into the TARGET store.

The copy is placed in a new group named __imported__<unix-timestamp> under the
target's root group (or under --target-group). Entries keep their title,
username, password, URL, notes, expiry, tags and icon; custom fields and
attachments are not copied. The target is rewritten atomically and only when
the whole import succeeded. The source is never written.
Use --dry-run to preview the resulting tree without writing.`,
		Example: `  vaultmerge import old.vault main.vault
  vaultmerge import -k old.key -b --target-group Archive old.vault main.vault
  VAULTMERGE_SOURCE_PASSWORD=... vaultmerge import --dry-run old.vault main.vault`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0], args[1], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sourceKeyfile, "source-keyfile", "k", "", "Keyfile of the source store")
	flags.StringVarP(&opts.targetKeyfile, "target-keyfile", "l", "", "Keyfile of the target store")
	flags.StringVarP(&opts.targetGroup, "target-group", "g", "/", "Existing target group that receives the import")
	flags.BoolVarP(&opts.backup, "backup", "b", false, "Copy the target to TARGET.bak.<unix-timestamp> before writing")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show the resulting tree changes without writing")
	flags.BoolVar(&opts.jsonOut, "json", false, "Print the import report as JSON")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, sourcePath, targetPath string, opts importOptions) error {
	same, err := sameFile(sourcePath, targetPath)
	if err != nil {
		return err
	}
	if same {
		return exitError(ExitUsage, errors.New("source and target are the same store"))
	}

	src, err := a.openStore(cmd, core.RoleSource, sourcePath, opts.sourceKeyfile)
	if err != nil {
		return err
	}
	dst, err := a.openStore(cmd, core.RoleTarget, targetPath, opts.targetKeyfile)
	if err != nil {
		src.Discard()
		return err
	}

	im := &core.Importer{
		Logger:   a.log,
		MaxDepth: a.cfg.MaxDepth,
	}
	report, err := im.Run(cmd.Context(), src, dst, core.Options{
		TargetGroup: opts.targetGroup,
		Backup:      opts.backup,
		DryRun:      opts.dryRun,
	})
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printImportSummary(cmd.OutOrStdout(), report)
	return nil
}

// sameFile reports whether both paths name the same existing file
func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("source store: %w", err)
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, fmt.Errorf("target store: %w", err)
	}
	return os.SameFile(ai, bi), nil
}

func printImportSummary(w io.Writer, r *core.Report) {
	root := path.Join("/", r.TargetGroup, r.Root)

	if r.DryRun {
		fmt.Fprint(w, r.Preview)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Dry run: would import %d groups and %d entries into %s\n", r.Stats.Groups, r.Stats.Entries, root)
		fmt.Fprintf(w, "%s was not modified\n", r.Target)
		return
	}

	fmt.Fprintf(w, "✓ Imported %d groups and %d entries from %s\n", r.Stats.Groups, r.Stats.Entries, r.Source)
	fmt.Fprintf(w, "  into %s at %s\n", r.Target, root)
	if r.BackupPath != "" {
		fmt.Fprintf(w, "  backup: %s\n", r.BackupPath)
	}
}
