package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/storage"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		keyfile    string
		iterations int
		rootName   string
	)

	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Create a new, empty credential store",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations == 0 {
				iterations = a.cfg.Iterations
			}
			if iterations < crypto.MinIters || iterations > crypto.MaxIters {
				return exitError(ExitUsage, fmt.Errorf("--iterations must be between %d and %d", crypto.MinIters, crypto.MaxIters))
			}

			password, err := a.newPassword(cmd)
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			s, err := core.Create(args[0], core.Credentials{Password: password, KeyfilePath: keyfile}, core.CreateOptions{
				Iterations: iterations,
				RootName:   rootName,
			})
			if err != nil {
				if errors.Is(err, storage.ErrExists) {
					return exitError(ExitFailure, fmt.Errorf("%s already exists", args[0]))
				}
				return err
			}
			defer s.Discard()

			a.log.Info("store created", "path", args[0], "store_id", s.ID(), "iterations", iterations)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized %s\n", args[0])
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&keyfile, "keyfile", "k", "", "Require this keyfile in addition to the password")
	flags.IntVar(&iterations, "iterations", 0, "PBKDF2 iterations (default from VAULTMERGE_KDF_ITERATIONS)")
	flags.StringVar(&rootName, "root-name", core.DefaultRootName, "Name of the root group")
	return cmd
}
