package core

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/illarion/vaultmerge/internal/backup"
	"github.com/illarion/vaultmerge/internal/outline"
	"github.com/illarion/vaultmerge/internal/storage"
	"github.com/illarion/vaultmerge/internal/vault"
)

// ImportRootPrefix starts the name of every import root group
const ImportRootPrefix = "__imported__"

// ImportRootName names the import root for a run started at now
func ImportRootName(now time.Time) string {
	return ImportRootPrefix + strconv.FormatInt(now.Unix(), 10)
}

// Importer carries the run context shared by every step of an import
type Importer struct {
	Logger   *slog.Logger
	Now      func() time.Time
	MaxDepth int
}

// Options select how a run treats the target
type Options struct {
	// TargetGroup is the "/"-separated path of the group that receives the
	// import root. Empty or "/" means the target's root group.
	TargetGroup string
	// Backup copies the target file before it is rewritten.
	Backup bool
	// DryRun imports in memory only and reports the outline diff.
	DryRun bool
}

// Result describes the import root built by Import
type Result struct {
	Root        *vault.Group
	Name        string
	TargetGroup string
	Stats       vault.Stats
}

// Report summarizes a Run
type Report struct {
	Source      string      `json:"source"`
	Target      string      `json:"target"`
	Root        string      `json:"root"`
	TargetGroup string      `json:"targetGroup"`
	Stats       vault.Stats `json:"stats"`
	BackupPath  string      `json:"backupPath,omitempty"`
	DryRun      bool        `json:"dryRun"`
	Preview     string      `json:"preview,omitempty"`
}

func (im *Importer) logger() *slog.Logger {
	if im.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return im.Logger
}

func (im *Importer) now() time.Time {
	if im.Now == nil {
		return time.Now()
	}
	return im.Now()
}

func (im *Importer) maxDepth() int {
	if im.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return im.MaxDepth
}

// Import copies the whole tree of src into a new import root group under
// targetGroup in dst. Nothing is written to disk. On error dst's tree is
// unchanged: the copy is attached only after it is complete.
func (im *Importer) Import(src, dst *Store, targetGroup string) (*Result, error) {
	if src.Closed() {
		return nil, withRole(ErrStoreClosed, RoleSource, src.Path())
	}
	if dst.Closed() {
		return nil, withRole(ErrStoreClosed, RoleTarget, dst.Path())
	}

	if targetGroup == "" {
		targetGroup = vault.PathSeparator
	}
	parent, err := vault.Find(dst.Root(), targetGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, targetGroup)
	}

	now := im.now()
	name := ImportRootName(now)
	log := im.logger().With("import_root", name)

	// Built detached; nothing under parent changes until the copy succeeded.
	root := vault.NewGroup(name)
	_, stats, err := CopyTree(src.Root(), root, CopyOptions{
		Now:      now,
		MaxDepth: im.maxDepth(),
		Logger:   log,
	})
	if err != nil {
		return nil, withRole(err, RoleSource, src.Path())
	}
	parent.AddGroup(root)

	dst.addImport(storage.ImportRecord{
		Root:        name,
		TargetGroup: targetGroup,
		At:          now.UTC(),
		SourceID:    src.ID(),
		Groups:      stats.Groups,
		Entries:     stats.Entries,
	})
	log.Info("import built", "groups", stats.Groups, "entries", stats.Entries)

	return &Result{Root: root, Name: name, TargetGroup: targetGroup, Stats: stats}, nil
}

// Run imports src into dst and takes ownership of both stores: src is always
// discarded, dst is persisted only when the import succeeded and DryRun is
// off, and discarded otherwise. A backup, when requested, is taken after the
// import is built and before dst is persisted.
func (im *Importer) Run(ctx context.Context, src, dst *Store, opts Options) (*Report, error) {
	defer src.Discard()
	defer dst.Discard()

	log := im.logger()
	report := &Report{
		Source: src.Path(),
		Target: dst.Path(),
		DryRun: opts.DryRun,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var before string
	if opts.DryRun {
		rendered, err := outline.Render(dst.Root(), im.maxDepth())
		if err != nil {
			return nil, withRole(fmt.Errorf("%w: %v", ErrStructure, err), RoleTarget, dst.Path())
		}
		before = rendered
	}

	res, err := im.Import(src, dst, opts.TargetGroup)
	if err != nil {
		log.Error("import failed, target left unchanged", "error", err)
		return nil, err
	}
	report.Root = res.Name
	report.TargetGroup = res.TargetGroup
	report.Stats = res.Stats

	if opts.DryRun {
		after, err := outline.Render(dst.Root(), im.maxDepth())
		if err != nil {
			return nil, withRole(fmt.Errorf("%w: %v", ErrStructure, err), RoleTarget, dst.Path())
		}
		report.Preview = outline.Diff(before, after)
		log.Info("dry run, target not written", "target", dst.Path())
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Backup {
		path, err := backup.Create(dst.Path(), im.now())
		if err != nil {
			return nil, withRole(err, RoleTarget, dst.Path())
		}
		report.BackupPath = path
		log.Info("target backed up", "backup", path)
	}

	if err := dst.Persist(); err != nil {
		return nil, withRole(err, RoleTarget, dst.Path())
	}
	log.Info("target written", "target", dst.Path(), "import_root", res.Name)

	return report, nil
}
