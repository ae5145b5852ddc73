package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/illarion/vaultmerge/internal/vault"
)

// DefaultMaxDepth bounds the nesting of a copied tree
const DefaultMaxDepth = 512

// CopyOptions configure a tree copy
type CopyOptions struct {
	Now      time.Time
	MaxDepth int
	Logger   *slog.Logger
}

// CopyTree rebuilds src and everything below it as a new child of parent,
// keeping subgroup and entry order. The copy is assembled detached and
// attached to parent only once it is complete, so a failure leaves parent
// unchanged. Cycles, nil nodes and trees deeper than MaxDepth fail with
// ErrStructure.
func CopyTree(src, parent *vault.Group, opts CopyOptions) (*vault.Group, vault.Stats, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	c := &copier{
		opts:   opts,
		onPath: make(map[*vault.Group]bool),
	}
	dst, err := c.copyGroup(src, 0)
	if err != nil {
		return nil, vault.Stats{}, err
	}
	parent.AddGroup(dst)
	return dst, c.stats, nil
}

type copier struct {
	opts   CopyOptions
	onPath map[*vault.Group]bool
	stats  vault.Stats
}

func (c *copier) copyGroup(src *vault.Group, depth int) (*vault.Group, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil group", ErrStructure)
	}
	if depth > c.opts.MaxDepth {
		return nil, fmt.Errorf("%w: deeper than %d levels at group %q", ErrStructure, c.opts.MaxDepth, src.Name)
	}
	if c.onPath[src] {
		return nil, fmt.Errorf("%w: cycle at group %q", ErrStructure, src.Name)
	}
	c.onPath[src] = true
	defer delete(c.onPath, src)

	dst := cloneGroup(src)
	c.stats.Groups++
	c.opts.Logger.Debug("copying group", "name", src.Name, "depth", depth,
		"groups", len(src.Groups), "entries", len(src.Entries))

	for _, sub := range src.Groups {
		child, err := c.copyGroup(sub, depth+1)
		if err != nil {
			return nil, err
		}
		dst.AddGroup(child)
	}

	for _, e := range src.Entries {
		if e == nil {
			return nil, fmt.Errorf("%w: nil entry in group %q", ErrStructure, src.Name)
		}
		dst.AddEntry(CloneEntry(e, c.opts.Now))
		c.stats.Entries++
		c.opts.Logger.Debug("cloned entry", "group", src.Name, "title", e.Title)
	}

	return dst, nil
}
