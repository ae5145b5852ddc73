package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/vault"
)

const (
	sourcePassword = "test1234"
	targetPassword = "test4321"
)

func creds(password string) Credentials {
	return Credentials{Password: []byte(password)}
}

// createStore creates a store at dir/name, lets build populate its root and
// writes it. The returned path can be reopened with password.
func createStore(t *testing.T, dir, name string, c Credentials, build func(root *vault.Group)) string {
	t.Helper()
	path := filepath.Join(dir, name)

	s, err := Create(path, c, CreateOptions{Iterations: crypto.MinIters})
	require.NoError(t, err)
	if build != nil {
		build(s.Root())
	}
	require.NoError(t, s.Persist())
	return path
}

func writeKeyfile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func entry(title, username, password string) *vault.Entry {
	e := vault.NewEntry(title, time.Unix(1000, 0))
	e.Username = username
	e.Password = password
	return e
}

// buildScenarioSource: Web{Mail} with child Sub{Bank}
func buildScenarioSource(root *vault.Group) {
	web := root.AddGroup(vault.NewGroup("Web"))
	web.AddEntry(entry("Mail", "a@x.com", "p1"))
	sub := web.AddGroup(vault.NewGroup("Sub"))
	sub.AddEntry(entry("Bank", "", "p2"))
}

// buildScenarioTarget: Existing{one entry}
func buildScenarioTarget(root *vault.Group) {
	existing := root.AddGroup(vault.NewGroup("Existing"))
	existing.AddEntry(entry("Router", "admin", "hunter2"))
}

// shape renders nesting, names and order, ignoring identity and times
func shape(g *vault.Group) string {
	var b strings.Builder
	var walk func(g *vault.Group, depth int)
	walk = func(g *vault.Group, depth int) {
		pad := strings.Repeat(" ", depth)
		b.WriteString(pad + "[" + g.Name + "]\n")
		for _, sub := range g.Groups {
			walk(sub, depth+1)
		}
		for _, e := range g.Entries {
			b.WriteString(pad + " -" + e.Title + "\n")
		}
	}
	walk(g, 0)
	return b.String()
}

// collect returns every group and entry pointer reachable from g
func collect(g *vault.Group) (map[*vault.Group]bool, map[*vault.Entry]bool) {
	groups := map[*vault.Group]bool{}
	entries := map[*vault.Entry]bool{}
	var walk func(g *vault.Group)
	walk = func(g *vault.Group) {
		groups[g] = true
		for _, e := range g.Entries {
			entries[e] = true
		}
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	walk(g)
	return groups, entries
}

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}
