package cmd

import (
	"context"
	"errors"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/storage"
)

// Process exit codes
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitUsage     = 2
	ExitAuth      = 3
	ExitIntegrity = 4
	ExitWrite     = 5
	ExitStructure = 6
)

// ExitError carries the exit code a failed command wants
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit code
func ExitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ee):
		return ee.Code
	case errors.Is(err, core.ErrAuth):
		return ExitAuth
	case errors.Is(err, core.ErrIntegrity), errors.Is(err, storage.ErrCorrupt):
		return ExitIntegrity
	case errors.Is(err, core.ErrWrite):
		return ExitWrite
	case errors.Is(err, core.ErrStructure):
		return ExitStructure
	case errors.Is(err, core.ErrGroupNotFound):
		return ExitUsage
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return ExitFailure
	}
}

// Hint returns a follow-up suggestion for err, or ""
func Hint(err error) string {
	switch {
	case errors.Is(err, core.ErrAuth):
		return "Check the password and keyfile for this store"
	case errors.Is(err, core.ErrIntegrity), errors.Is(err, storage.ErrCorrupt):
		return "The store file is damaged or needs a keyfile (-k/-l)"
	case errors.Is(err, core.ErrGroupNotFound):
		return "Use 'vaultmerge tree' to list the target's groups"
	case errors.Is(err, errNoTerminal):
		return "Set VAULTMERGE_PASSWORD or run vaultmerge from a terminal"
	default:
		return ""
	}
}
