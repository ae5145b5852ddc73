// Package outline renders a group tree as indented text and diffs two
// renderings line by line. Passwords and notes are never rendered.
package outline

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/vaultmerge/internal/vault"
)

const indent = "  "

// Render writes one line per group ("Name/") and entry ("- Title <user>"),
// subgroups before entries, indented by depth.
func Render(root *vault.Group, maxDepth int) (string, error) {
	// Reject cycles and runaway depth before recursing
	if err := vault.Walk(root, maxDepth, func(*vault.Group, int) error { return nil }); err != nil {
		return "", err
	}

	var b strings.Builder
	renderGroup(&b, root, 0)
	return b.String(), nil
}

func renderGroup(b *strings.Builder, g *vault.Group, depth int) {
	pad := strings.Repeat(indent, depth)
	b.WriteString(pad)
	b.WriteString(g.Name)
	b.WriteString("/\n")

	for _, sub := range g.Groups {
		renderGroup(b, sub, depth+1)
	}
	for _, e := range g.Entries {
		if e == nil {
			continue
		}
		b.WriteString(pad)
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(e.Title)
		if e.Username != "" {
			b.WriteString(" <")
			b.WriteString(e.Username)
			b.WriteString(">")
		}
		b.WriteString("\n")
	}
}

// Diff compares two renderings line by line. Unchanged lines are prefixed
// with two spaces, removed lines with "- " and added lines with "+ ".
func Diff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String()
}
