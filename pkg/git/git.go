package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mathematic-inc/if-changed/pkg/check"
)

// Repo talks to a git repository through the git binary. It implements
// check.Repository with repository-root-relative slash paths.
type Repo struct {
	root string
}

// Open locates the repository containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("could not open the repository: %w", err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, errors.New("could not open the repository: no toplevel")
	}
	return &Repo{root: root}, nil
}

// Root returns the repository's absolute working-tree path.
func (r *Repo) Root() string { return r.root }

// Files lists every file at rev; for the working tree that is the
// tracked set plus untracked files not covered by ignore rules.
func (r *Repo) Files(ctx context.Context, rev check.Revision) ([]string, error) {
	var out []byte
	var err error
	if rev.IsWorktree() {
		out, err = r.run(ctx, "ls-files", "-z", "-co", "--exclude-standard")
	} else {
		out, err = r.run(ctx, "ls-tree", "-r", "-z", "--name-only", rev.Name())
	}
	if err != nil {
		return nil, err
	}
	return splitNul(out), nil
}

// Content reads one file at rev. Any failure to read a path at a named
// revision reports check.ErrNotFound; revision breakage surfaces
// through the other calls.
func (r *Repo) Content(ctx context.Context, rev check.Revision, path string) ([]byte, error) {
	if rev.IsWorktree() {
		data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, check.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	data, err := r.run(ctx, "cat-file", "blob", rev.Name()+":"+path)
	if err != nil {
		return nil, fmt.Errorf("%s at %s: %w", path, rev, check.ErrNotFound)
	}
	return data, nil
}

// resolves reports whether rev names a commit in this repository.
func (r *Repo) resolves(ctx context.Context, rev string) bool {
	_, err := r.run(ctx, "rev-parse", "-q", "--verify", rev+"^{commit}")
	return err == nil
}

// emptyTree returns the hash of the empty tree for the repository's
// object format. Git special-cases the object, so it needs no write.
func (r *Repo) emptyTree(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "hash-object", "-t", "tree", os.DevNull)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	return runGit(ctx, r.root, args...)
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.Bytes(), nil
}

func splitNul(out []byte) []string {
	if len(out) == 0 {
		return nil
	}
	parts := bytes.Split(out, []byte{0})
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(string(p))
		if s == "" {
			continue
		}
		files = append(files, s)
	}
	return files
}
