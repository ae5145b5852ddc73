package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/outline"
	"github.com/illarion/vaultmerge/internal/vault"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		keyfile string
		group   string
	)

	cmd := &cobra.Command{
		Use:   "tree PATH",
		Short: "Print the group tree of a store",
		Long: `Print the groups and entry titles of a store as an indented outline.
Passwords and notes are never printed.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd, "", args[0], keyfile)
			if err != nil {
				return err
			}
			defer s.Discard()

			g, err := vault.Find(s.Root(), group)
			if err != nil {
				return fmt.Errorf("%w: %s", core.ErrGroupNotFound, group)
			}

			text, err := outline.Render(g, a.cfg.MaxDepth)
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrStructure, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyfile, "keyfile", "k", "", "Keyfile of the store")
	cmd.Flags().StringVarP(&group, "group", "g", "/", "Print only this group")
	return cmd
}
