// Package cmd implements the vaultmerge command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/illarion/vaultmerge/internal/config"
	"github.com/illarion/vaultmerge/internal/logging"
)

// app is the state shared by all commands of one invocation
type app struct {
	cfg *config.Config
	log *slog.Logger

	logLevel  string
	logFormat string
	verbose   bool
}

// NewRootCmd builds the vaultmerge command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vaultmerge",
		Short: "Import one encrypted credential store into another",
		Long: `vaultmerge copies the complete group and entry tree of a source credential
store into a target store. Every import lands in a new top-level group named
__imported__<unix-timestamp>; nothing already in the target is merged,
renamed or deduplicated, and the source file is never written.

Passwords are taken from VAULTMERGE_SOURCE_PASSWORD, VAULTMERGE_TARGET_PASSWORD
or VAULTMERGE_PASSWORD, then from the OS keyring, then from a terminal prompt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides VAULTMERGE_LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (overrides VAULTMERGE_LOG_FORMAT)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Same as --log-level=debug")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitError(ExitUsage, err)
	})

	root.AddCommand(
		newImportCmd(a),
		newInitCmd(a),
		newTreeCmd(a),
		newHistoryCmd(a),
		newPasswdCmd(a),
		newKeyringCmd(a),
	)
	return root
}

// Execute runs the vaultmerge command line with ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return exitError(ExitUsage, fmt.Errorf("failed to load config: %w", err))
	}

	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.logLevel != "" {
		switch a.logLevel {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = a.logLevel
		default:
			return exitError(ExitUsage, fmt.Errorf("invalid --log-level %q", a.logLevel))
		}
	}
	if a.logFormat != "" {
		if a.logFormat != "text" && a.logFormat != "json" {
			return exitError(ExitUsage, fmt.Errorf("invalid --log-format %q", a.logFormat))
		}
		cfg.LogFormat = a.logFormat
	}

	a.cfg = cfg
	a.log = logging.New(cfg, cmd.ErrOrStderr())
	return nil
}

// exactArgs is cobra.ExactArgs reporting a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return exitError(ExitUsage, err)
		}
		return nil
	}
}
