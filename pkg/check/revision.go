package check

import (
	"context"
	"errors"

	"github.com/mathematic-inc/if-changed/pkg/changes"
)

// ErrNotFound reports that a revision does not resolve or a path does not
// exist at a revision.
var ErrNotFound = errors.New("not found")

// Revision identifies where content and diffs are read from: a named
// revision or the working tree. The zero value is the working tree.
type Revision struct {
	name string
}

// Worktree returns the working-tree sentinel.
func Worktree() Revision { return Revision{} }

// Rev returns a named-revision value.
func Rev(name string) Revision { return Revision{name: name} }

// IsWorktree reports whether r is the working-tree sentinel.
func (r Revision) IsWorktree() bool { return r.name == "" }

// Name returns the revision name, "" for the working tree.
func (r Revision) Name() string { return r.name }

func (r Revision) String() string {
	if r.name == "" {
		return "<worktree>"
	}
	return r.name
}

// Repository is the version-control collaborator the checker runs
// against. All paths are repository-root-relative and slash-separated.
type Repository interface {
	// Files lists every file present at rev. For the working tree this
	// includes untracked files that are not ignored.
	Files(ctx context.Context, rev Revision) ([]string, error)

	// Diff returns hunk lists keyed by new-side path for everything
	// differing between the revisions. Files present only at "to"
	// (untracked, newly added, or every file when "from" does not
	// resolve) appear as whole-file hunks; files deleted at "to" appear
	// with no new-side lines.
	Diff(ctx context.Context, from, to Revision) (map[string][]changes.Hunk, error)

	// Content reads one file at rev, ErrNotFound when absent.
	Content(ctx context.Context, rev Revision, path string) ([]byte, error)

	// TrailerLines returns the "Key: value" trailer lines of the commits
	// between the revisions. A working-tree "to" contributes no commits
	// of its own.
	TrailerLines(ctx context.Context, from, to Revision) ([]string, error)
}
