package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/keyring"
)

func newPasswdCmd(a *app) *cobra.Command {
	var (
		keyfile    string
		newKeyfile string
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "passwd PATH",
		Short: "Change the password and keyfile of a store",
		Long: `Re-encrypt a store under a new password and, optionally, a new keyfile.
Without --new-keyfile the store no longer requires a keyfile.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations != 0 && (iterations < crypto.MinIters || iterations > crypto.MaxIters) {
				return exitError(ExitUsage, fmt.Errorf("--iterations must be between %d and %d", crypto.MinIters, crypto.MaxIters))
			}

			s, err := a.openStore(cmd, "", args[0], keyfile)
			if err != nil {
				return err
			}
			defer s.Discard()
			storeID := s.ID()

			password, err := readPasswordConfirm(cmd.ErrOrStderr(), "New password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			if err := s.Rekey(core.Credentials{Password: password, KeyfilePath: newKeyfile}, iterations); err != nil {
				return err
			}
			if err := s.Persist(); err != nil {
				return err
			}

			// Keep a cached password in step with the store
			if !a.cfg.NoKeyring && keyring.HasPassword(storeID) {
				if err := keyring.SavePassword(storeID, string(password)); err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Keyring updated with new password")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Password changed successfully")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&keyfile, "keyfile", "k", "", "Current keyfile of the store")
	flags.StringVar(&newKeyfile, "new-keyfile", "", "Keyfile to require from now on")
	flags.IntVar(&iterations, "iterations", 0, "PBKDF2 iterations (default keeps the current count)")
	return cmd
}
