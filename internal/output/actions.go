package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Deferred commit and undo operations are recorded as tagged variants rather
// than captured closures, one commit and one undo per staged write. A commit
// action makes the staged content visible at the destination; its undo action
// reverses whatever the staged write left behind.

type commitKind int

const (
	commitMove commitKind = iota
	commitReplaceWithBackup
)

type commitAction struct {
	kind    commitKind
	staging string
	dest    string
}

type undoKind int

const (
	undoDeleteStaging undoKind = iota
	undoRestoreBackup
)

type undoAction struct {
	kind    undoKind
	staging string
	dest    string
}

func backupPath(dest string) string { return dest + ".bak" }

func (a commitAction) run() error {
	switch a.kind {
	case commitMove:
		if err := os.MkdirAll(filepath.Dir(a.dest), 0o755); err != nil {
			return fmt.Errorf("output: create destination directory for %s: %w", a.dest, err)
		}
		if err := os.Rename(a.staging, a.dest); err != nil {
			return fmt.Errorf("output: move staged output to %s: %w", a.dest, err)
		}
		return nil
	case commitReplaceWithBackup:
		backup := backupPath(a.dest)
		if err := os.Rename(a.dest, backup); err != nil {
			return fmt.Errorf("output: back up %s: %w", a.dest, err)
		}
		if err := os.Rename(a.staging, a.dest); err != nil {
			if rerr := os.Rename(backup, a.dest); rerr != nil {
				return fmt.Errorf("output: replace %s: %v (original preserved at %s)", a.dest, err, backup)
			}
			return fmt.Errorf("output: replace %s: %w", a.dest, err)
		}
		if err := os.Remove(backup); err != nil {
			return fmt.Errorf("output: remove backup %s: %w", backup, err)
		}
		return nil
	default:
		return fmt.Errorf("output: unknown commit action %d", a.kind)
	}
}

// Undo actions tolerate missing files: after a partial Complete, staged files
// that were already committed are gone and their backups removed, and undoing
// those entries must be a no-op.
func (a undoAction) run() error {
	switch a.kind {
	case undoDeleteStaging:
		if err := os.Remove(a.staging); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("output: delete staging file %s: %w", a.staging, err)
		}
		return nil
	case undoRestoreBackup:
		backup := backupPath(a.dest)
		if _, err := os.Lstat(backup); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("output: inspect backup %s: %w", backup, err)
		}
		if err := os.Rename(backup, a.dest); err != nil {
			return fmt.Errorf("output: restore backup to %s: %w", a.dest, err)
		}
		return nil
	default:
		return fmt.Errorf("output: unknown undo action %d", a.kind)
	}
}
