package git

import (
	"context"
	"errors"
	"strings"

	"github.com/mathematic-inc/if-changed/pkg/check"
)

// TrailerLines returns the "Key: value" trailer lines of commits
// reachable from "to" but not from "from". A working-tree "to" reads
// up to HEAD; an unresolvable endpoint yields no lines.
func (r *Repo) TrailerLines(ctx context.Context, from, to check.Revision) ([]string, error) {
	if from.IsWorktree() {
		return nil, errors.New("trailer base must be a named revision")
	}
	if !r.resolves(ctx, from.Name()) {
		return nil, nil
	}
	tip := "HEAD"
	if !to.IsWorktree() {
		tip = to.Name()
	}
	if !r.resolves(ctx, tip) {
		return nil, nil
	}

	out, err := r.run(ctx, "log", "--format=%(trailers:only,unfold)", from.Name()+".."+tip)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
