package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/keyring"
	"github.com/illarion/vaultmerge/internal/storage"
)

var errNoTerminal = errors.New("password required but stdin is not a terminal")

// readPassword reads a password from the terminal without echoing
func readPassword(w io.Writer, prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoTerminal
	}

	fmt.Fprint(w, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// readPasswordConfirm reads a password twice and ensures they match
func readPasswordConfirm(w io.Writer, prompt string) ([]byte, error) {
	password1, err := readPassword(w, prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password1)

	password2, err := readPassword(w, "Confirm password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		return nil, exitError(ExitUsage, errors.New("passwords do not match"))
	}
	if len(password1) == 0 {
		return nil, exitError(ExitUsage, errors.New("password must not be empty"))
	}

	result := make([]byte, len(password1))
	copy(result, password1)
	return result, nil
}

// newPassword returns the password for a store being created. The generic
// environment password wins over prompting.
func (a *app) newPassword(cmd *cobra.Command) ([]byte, error) {
	if a.cfg.Password != "" {
		return []byte(a.cfg.Password), nil
	}
	return readPasswordConfirm(cmd.ErrOrStderr(), "New password: ")
}

// storeID reads the store ID from the unencrypted header, or "" when the
// keyring is disabled or the header cannot be read.
func (a *app) storeID(path string) string {
	if a.cfg.NoKeyring {
		return ""
	}
	rec, err := storage.Load(path)
	if err != nil {
		return ""
	}
	return rec.StoreID
}

// openStore opens the store at path as role. The password comes from the
// environment, then the OS keyring, then a prompt. A keyring password that
// no longer opens the store falls back to the prompt once.
func (a *app) openStore(cmd *cobra.Command, role core.Role, path, keyfile string) (*core.Store, error) {
	creds := core.Credentials{KeyfilePath: keyfile}

	if pw := a.cfg.PasswordFor(string(role)); pw != "" {
		creds.Password = []byte(pw)
		defer crypto.ClearBytes(creds.Password)
		a.log.Debug("using password from environment", "role", role, "store", path)
		return core.OpenAs(role, path, creds)
	}

	storeID := a.storeID(path)
	if storeID != "" {
		if pw, err := keyring.GetPassword(storeID); err == nil {
			creds.Password = []byte(pw)
			s, err := core.OpenAs(role, path, creds)
			crypto.ClearBytes(creds.Password)
			if !errors.Is(err, core.ErrAuth) {
				a.log.Debug("using password from keyring", "role", role, "store", path)
				return s, err
			}
			a.log.Warn("keyring password rejected, prompting", "role", role, "store", path)
		}
	}

	prompt := "Password: "
	if role != "" {
		prompt = fmt.Sprintf("Password for %s store %s: ", role, path)
	}
	password, err := readPassword(cmd.ErrOrStderr(), prompt)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(password)

	creds.Password = password
	s, err := core.OpenAs(role, path, creds)
	if err != nil {
		return nil, err
	}
	if storeID != "" {
		a.offerToSavePassword(cmd, storeID, password)
	}
	return s, nil
}

// offerToSavePassword asks whether a prompted password should be cached
func (a *app) offerToSavePassword(cmd *cobra.Command, storeID string, password []byte) {
	if keyring.HasPassword(storeID) {
		return
	}

	w := cmd.ErrOrStderr()
	fmt.Fprint(w, "Save password to OS keyring? [y/N]: ")
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		return
	}

	if err := keyring.SavePassword(storeID, string(password)); err != nil {
		a.log.Warn("failed to save password to keyring", "error", err)
		fmt.Fprintf(w, "warning: keyring unavailable: %s\n", err)
		return
	}
	fmt.Fprintln(w, "Password saved to keyring")
}
