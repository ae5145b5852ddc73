package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/illarion/vaultmerge/internal/core"
	"github.com/illarion/vaultmerge/internal/storage"
	"github.com/illarion/vaultmerge/internal/vault"
)

// isolateEnv clears every VAULTMERGE_ variable and makes store creation cheap
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VAULTMERGE_PASSWORD",
		"VAULTMERGE_SOURCE_PASSWORD",
		"VAULTMERGE_TARGET_PASSWORD",
		"VAULTMERGE_LOG_LEVEL",
		"VAULTMERGE_LOG_FORMAT",
		"VAULTMERGE_MAX_DEPTH",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("VAULTMERGE_KDF_ITERATIONS", "1000")
	t.Setenv("VAULTMERGE_NO_KEYRING", "true")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// initStore creates a store with password and lets build populate it
func initStore(t *testing.T, path, password string, build func(root *vault.Group)) {
	t.Helper()
	t.Setenv("VAULTMERGE_PASSWORD", password)
	out, err := run(t, "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "✓ Initialized")
	t.Setenv("VAULTMERGE_PASSWORD", "")

	if build == nil {
		return
	}
	s, err := core.Open(path, core.Credentials{Password: []byte(password)})
	require.NoError(t, err)
	build(s.Root())
	require.NoError(t, s.Persist())
}

func webTree(root *vault.Group) {
	web := root.AddGroup(vault.NewGroup("Web"))
	e := web.AddEntry(vault.NewEntry("Mail", time.Now()))
	e.Username = "a@x.com"
	e.Password = "p1"
}

type stores struct {
	source string
	target string
}

func newStores(t *testing.T) stores {
	t.Helper()
	isolateEnv(t)
	dir := t.TempDir()
	s := stores{
		source: filepath.Join(dir, "source.vault"),
		target: filepath.Join(dir, "target.vault"),
	}
	initStore(t, s.source, "src-pw", webTree)
	initStore(t, s.target, "dst-pw", nil)
	t.Setenv("VAULTMERGE_SOURCE_PASSWORD", "src-pw")
	t.Setenv("VAULTMERGE_TARGET_PASSWORD", "dst-pw")
	return s
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestImportCommand(t *testing.T) {
	s := newStores(t)
	before := readFile(t, s.source)

	out, err := run(t, "import", "--backup", s.source, s.target)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported 2 groups and 1 entries")
	assert.Contains(t, out, "/__imported__")
	assert.Contains(t, out, "backup: "+s.target+".bak.")

	assert.Equal(t, before, readFile(t, s.source))

	t.Setenv("VAULTMERGE_PASSWORD", "dst-pw")
	out, err = run(t, "tree", s.target)
	require.NoError(t, err)
	assert.Contains(t, out, "Root/\n  __imported__")
	assert.Contains(t, out, "      Web/\n        - Mail <a@x.com>\n")
	assert.NotContains(t, out, "p1")

	out, err = run(t, "history", s.target)
	require.NoError(t, err)
	assert.Contains(t, out, "IMPORTED")
	assert.Contains(t, out, "__imported__")

	out, err = run(t, "history", "--json", s.target)
	require.NoError(t, err)
	var imports []storage.ImportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &imports))
	require.Len(t, imports, 1)
	assert.Equal(t, 2, imports[0].Groups)
	assert.Equal(t, 1, imports[0].Entries)
}

func TestImportCommandJSON(t *testing.T) {
	s := newStores(t)

	out, err := run(t, "import", "--json", "-g", "/", s.source, s.target)
	require.NoError(t, err)

	var report core.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, s.source, report.Source)
	assert.Equal(t, vault.Stats{Groups: 2, Entries: 1}, report.Stats)
	assert.False(t, report.DryRun)
}

func TestImportCommandDryRun(t *testing.T) {
	s := newStores(t)
	before := readFile(t, s.target)

	out, err := run(t, "import", "--dry-run", s.source, s.target)
	require.NoError(t, err)
	assert.Contains(t, out, "+   __imported__")
	assert.Contains(t, out, "Dry run: would import 2 groups and 1 entries")

	assert.Equal(t, before, readFile(t, s.target))
}

func TestImportCommandFailures(t *testing.T) {
	tests := []struct {
		name string
		args func(s stores) []string
		env  map[string]string
		code int
	}{
		{
			name: "wrong source password",
			args: func(s stores) []string { return []string{"import", s.source, s.target} },
			env:  map[string]string{"VAULTMERGE_SOURCE_PASSWORD": "nope"},
			code: ExitAuth,
		},
		{
			name: "wrong target password",
			args: func(s stores) []string { return []string{"import", s.source, s.target} },
			env:  map[string]string{"VAULTMERGE_TARGET_PASSWORD": "nope"},
			code: ExitAuth,
		},
		{
			name: "same store",
			args: func(s stores) []string { return []string{"import", s.target, s.target} },
			code: ExitUsage,
		},
		{
			name: "missing group",
			args: func(s stores) []string { return []string{"import", "-g", "Nope", s.source, s.target} },
			code: ExitUsage,
		},
		{
			name: "missing source",
			args: func(s stores) []string { return []string{"import", s.source + ".missing", s.target} },
			code: ExitFailure,
		},
		{
			name: "one argument",
			args: func(s stores) []string { return []string{"import", s.source} },
			code: ExitUsage,
		},
		{
			name: "unknown flag",
			args: func(s stores) []string { return []string{"import", "--nope", s.source, s.target} },
			code: ExitUsage,
		},
		{
			name: "no password and no terminal",
			args: func(s stores) []string { return []string{"import", s.source, s.target} },
			env:  map[string]string{"VAULTMERGE_SOURCE_PASSWORD": ""},
			code: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStores(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.name == "no password and no terminal" && term.IsTerminal(int(os.Stdin.Fd())) {
				t.Skip("stdin is a terminal")
			}
			before := readFile(t, s.target)

			_, err := run(t, tt.args(s)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, ExitCode(err))
			assert.Equal(t, before, readFile(t, s.target))
		})
	}
}

func TestInitExisting(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "store.vault")
	initStore(t, path, "pw", nil)

	t.Setenv("VAULTMERGE_PASSWORD", "pw")
	_, err := run(t, "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitWithKeyfile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "store.vault")
	keyfile := filepath.Join(dir, "store.key")
	require.NoError(t, os.WriteFile(keyfile, []byte("key"), 0600))

	t.Setenv("VAULTMERGE_PASSWORD", "pw")
	_, err := run(t, "init", "--keyfile", keyfile, path)
	require.NoError(t, err)

	_, err = run(t, "tree", path)
	assert.Equal(t, ExitIntegrity, ExitCode(err))

	out, err := run(t, "tree", "-k", keyfile, path)
	require.NoError(t, err)
	assert.Equal(t, "Root/\n", out)
}

func TestKeyringCommands(t *testing.T) {
	isolateEnv(t)
	gokeyring.MockInit()
	t.Setenv("VAULTMERGE_NO_KEYRING", "false")

	path := filepath.Join(t.TempDir(), "store.vault")
	initStore(t, path, "pw", nil)

	out, err := run(t, "keyring", "status", path)
	require.NoError(t, err)
	assert.Equal(t, "Password: not stored\n", out)

	t.Setenv("VAULTMERGE_PASSWORD", "wrong")
	_, err = run(t, "keyring", "save", path)
	assert.Equal(t, ExitAuth, ExitCode(err))

	t.Setenv("VAULTMERGE_PASSWORD", "pw")
	out, err = run(t, "keyring", "save", path)
	require.NoError(t, err)
	assert.Equal(t, "Password saved to keyring\n", out)

	out, err = run(t, "keyring", "status", path)
	require.NoError(t, err)
	assert.Equal(t, "Password: stored in keyring\n", out)

	// With no environment password the keyring is used
	t.Setenv("VAULTMERGE_PASSWORD", "")
	out, err = run(t, "tree", path)
	require.NoError(t, err)
	assert.Equal(t, "Root/\n", out)

	out, err = run(t, "keyring", "delete", path)
	require.NoError(t, err)
	assert.Equal(t, "Password removed from keyring\n", out)

	out, err = run(t, "keyring", "delete", path)
	require.NoError(t, err)
	assert.Equal(t, "No password stored in keyring\n", out)
}

func TestInvalidLogFlags(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "store.vault")

	_, err := run(t, "--log-level", "loud", "history", path)
	assert.Equal(t, ExitUsage, ExitCode(err))

	_, err = run(t, "--log-format", "xml", "history", path)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	wrap := func(err error) error {
		return &core.StoreError{Role: core.RoleSource, Path: "x", Err: err}
	}

	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{exitError(ExitUsage, errors.New("usage")), ExitUsage},
		{wrap(core.ErrAuth), ExitAuth},
		{wrap(fmt.Errorf("%w: payload", core.ErrIntegrity)), ExitIntegrity},
		{fmt.Errorf("%w: bad page", storage.ErrCorrupt), ExitIntegrity},
		{wrap(fmt.Errorf("%w: disk full", core.ErrWrite)), ExitWrite},
		{wrap(fmt.Errorf("%w: cycle", core.ErrStructure)), ExitStructure},
		{fmt.Errorf("%w: A/B", core.ErrGroupNotFound), ExitUsage},
		{context.Canceled, 130},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "ExitCode(%v)", tt.err)
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("boom"), ""},
		{&core.StoreError{Role: core.RoleTarget, Path: "x", Err: core.ErrAuth}, "Check the password and keyfile for this store"},
		{fmt.Errorf("%w: payload", core.ErrIntegrity), "The store file is damaged or needs a keyfile (-k/-l)"},
		{fmt.Errorf("%w: file is empty", storage.ErrCorrupt), "The store file is damaged or needs a keyfile (-k/-l)"},
		{fmt.Errorf("%w: A/B", core.ErrGroupNotFound), "Use 'vaultmerge tree' to list the target's groups"},
		{errNoTerminal, "Set VAULTMERGE_PASSWORD or run vaultmerge from a terminal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Hint(tt.err), "Hint(%v)", tt.err)
	}
}

func TestTruncatedStore(t *testing.T) {
	s := newStores(t)
	require.NoError(t, os.Truncate(s.target, 5000))

	_, err := run(t, "import", s.source, s.target)
	assert.Equal(t, ExitIntegrity, ExitCode(err))
	assert.NotEmpty(t, Hint(err))

	_, err = run(t, "history", s.target)
	assert.Equal(t, ExitIntegrity, ExitCode(err))
	assert.NotEmpty(t, Hint(err))

	require.NoError(t, os.Truncate(s.target, 0))
	_, err = run(t, "history", s.target)
	assert.Equal(t, ExitIntegrity, ExitCode(err))
}
