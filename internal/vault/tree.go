package vault

import (
	"errors"
	"fmt"
	"strings"
)

// PathSeparator separates group names in a group path
const PathSeparator = "/"

var (
	ErrCycle    = errors.New("group tree contains a cycle")
	ErrTooDeep  = errors.New("group tree exceeds maximum depth")
	ErrNilNode  = errors.New("group tree contains a nil node")
	ErrNotFound = errors.New("group not found")
)

// Stats counts the nodes of a tree
type Stats struct {
	Groups  int `json:"groups"`
	Entries int `json:"entries"`
}

// WalkFunc is called for every group in pre-order. depth is 0 for the
// group Walk was started on.
type WalkFunc func(g *Group, depth int) error

// Walk visits g and its descendants depth-first, pre-order, in stored order.
// It fails on cycles, nil nodes and trees deeper than maxDepth (0 = unbounded).
func Walk(g *Group, maxDepth int, fn WalkFunc) error {
	return walk(g, 0, maxDepth, make(map[*Group]bool), fn)
}

func walk(g *Group, depth, maxDepth int, onPath map[*Group]bool, fn WalkFunc) error {
	if g == nil {
		return ErrNilNode
	}
	if maxDepth > 0 && depth > maxDepth {
		return fmt.Errorf("%w (%d)", ErrTooDeep, maxDepth)
	}
	if onPath[g] {
		return fmt.Errorf("%w at group %q", ErrCycle, g.Name)
	}
	if err := fn(g, depth); err != nil {
		return err
	}

	onPath[g] = true
	defer delete(onPath, g)
	for _, child := range g.Groups {
		if err := walk(child, depth+1, maxDepth, onPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of groups (including g) and entries under g
func Count(g *Group, maxDepth int) (Stats, error) {
	var s Stats
	err := Walk(g, maxDepth, func(g *Group, _ int) error {
		s.Groups++
		for _, e := range g.Entries {
			if e == nil {
				return ErrNilNode
			}
			s.Entries++
		}
		return nil
	})
	return s, err
}

// SplitPath splits a "/"-separated group path into names, ignoring empty
// segments. "/" and "" both denote the root.
func SplitPath(path string) []string {
	var names []string
	for _, name := range strings.Split(path, PathSeparator) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Find resolves a group path relative to root. Each segment selects the
// first child with that name.
func Find(root *Group, path string) (*Group, error) {
	g := root
	for _, name := range SplitPath(path) {
		next := g.Subgroup(name)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		g = next
	}
	return g, nil
}
