package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/keyring"
	"github.com/illarion/vaultmerge/internal/storage"
)

func newKeyringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage store passwords cached in the OS keyring",
	}
	cmd.AddCommand(
		newKeyringSaveCmd(a),
		newKeyringDeleteCmd(),
		newKeyringStatusCmd(),
	)
	return cmd
}

func newKeyringSaveCmd(a *app) *cobra.Command {
	var keyfile string

	cmd := &cobra.Command{
		Use:   "save PATH",
		Short: "Verify a store password and save it to the OS keyring",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := []byte(a.cfg.Password)
			if len(password) == 0 {
				var err error
				password, err = readPassword(cmd.ErrOrStderr(), "Enter password: ")
				if err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(password)

			// Verify password is correct
			s, err := core.Open(args[0], core.Credentials{Password: password, KeyfilePath: keyfile})
			if err != nil {
				return err
			}
			storeID := s.ID()
			s.Discard()

			if err := keyring.SavePassword(storeID, string(password)); err != nil {
				return fmt.Errorf("failed to save to keyring: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password saved to keyring")
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyfile, "keyfile", "k", "", "Keyfile of the store")
	return cmd
}

func newKeyringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete PATH",
		Short: "Remove a store password from the OS keyring",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			if !keyring.HasPassword(rec.StoreID) {
				fmt.Fprintln(cmd.OutOrStdout(), "No password stored in keyring")
				return nil
			}
			if err := keyring.DeletePassword(rec.StoreID); err != nil {
				return fmt.Errorf("failed to delete from keyring: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password removed from keyring")
			return nil
		},
	}
}

func newKeyringStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status PATH",
		Short: "Report whether a store password is cached",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			if keyring.HasPassword(rec.StoreID) {
				fmt.Fprintln(cmd.OutOrStdout(), "Password: stored in keyring")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Password: not stored")
			}
			return nil
		},
	}
}
