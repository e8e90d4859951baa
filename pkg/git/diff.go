package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/mathematic-inc/if-changed/pkg/changes"
	"github.com/mathematic-inc/if-changed/pkg/check"
)

// Diff returns changed-line hunks between the revisions, keyed by
// new-side path (old-side for deletions). When "to" is the working
// tree, untracked files count as wholly changed; when "from" does not
// resolve to a commit, everything is diffed against the empty tree.
func (r *Repo) Diff(ctx context.Context, from, to check.Revision) (map[string][]changes.Hunk, error) {
	if from.IsWorktree() {
		return nil, errors.New("diff base must be a named revision")
	}
	base := from.Name()
	if !r.resolves(ctx, base) {
		empty, err := r.emptyTree(ctx)
		if err != nil {
			return nil, err
		}
		base = empty
	}

	args := []string{
		"-c", "core.quotepath=off",
		"diff", "-U0", "--no-color", "--no-ext-diff", "--find-renames",
		base,
	}
	if !to.IsWorktree() {
		args = append(args, to.Name())
	}
	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	fds, err := godiff.NewMultiFileDiffReader(bytes.NewReader(out)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	hunks := make(map[string][]changes.Hunk, len(fds))
	for _, fd := range fds {
		name := diffPath(fd)
		if name == "" {
			continue
		}
		for _, h := range fd.Hunks {
			hunks[name] = append(hunks[name], changes.Hunk{
				OldStart: int(h.OrigStartLine),
				OldLines: int(h.OrigLines),
				NewStart: int(h.NewStartLine),
				NewLines: int(h.NewLines),
			})
		}
	}

	if to.IsWorktree() {
		if err := r.addUntracked(ctx, hunks); err != nil {
			return nil, err
		}
	}
	return hunks, nil
}

// diffPath picks the surviving path of a file diff, stripping the
// prefix git puts on its side: b/ on the new side, a/ on the old.
func diffPath(fd *godiff.FileDiff) string {
	if name := stripPathPrefix(fd.NewName, "b/"); name != "" {
		return name
	}
	return stripPathPrefix(fd.OrigName, "a/")
}

func stripPathPrefix(name, prefix string) string {
	if name == "" || name == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

func (r *Repo) addUntracked(ctx context.Context, hunks map[string][]changes.Hunk) error {
	out, err := r.run(ctx, "ls-files", "-z", "--others", "--exclude-standard")
	if err != nil {
		return err
	}
	for _, p := range splitNul(out) {
		if _, ok := hunks[p]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(p)))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		n := changes.CountLines(data)
		if n == 0 {
			n = 1
		}
		hunks[p] = []changes.Hunk{{NewStart: 1, NewLines: n}}
	}
	return nil
}
