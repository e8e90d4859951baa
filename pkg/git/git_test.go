package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/mathematic-inc/if-changed/pkg/changes"
	"github.com/mathematic-inc/if-changed/pkg/check"
)

func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_SYSTEM=/dev/null",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q", "-b", "main")
	gitCmd(t, dir, "config", "user.name", "test")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	return dir
}

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func commitAll(t *testing.T, dir, message string) {
	t.Helper()
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "-q", "-m", message)
}

func openRepo(t *testing.T, dir string) *Repo {
	t.Helper()
	r, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return r
}

func lineSet(t *testing.T, hunks map[string][]changes.Hunk, path string) changes.Set {
	t.Helper()
	hs, ok := hunks[path]
	if !ok {
		t.Fatalf("no diff entry for %q, have %v", path, hunks)
	}
	return changes.FromHunks(hs)
}

// Test 1: Open finds the repository root from a nested directory.
func TestOpen_FindsRoot(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "sub/inner/file.txt", "x\n")
	r := openRepo(t, filepath.Join(dir, "sub", "inner"))
	wantRoot, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	gotRoot, err := filepath.EvalSymlinks(r.Root())
	if err != nil {
		t.Fatal(err)
	}
	if gotRoot != wantRoot {
		t.Errorf("root = %q, want %q", gotRoot, wantRoot)
	}
}

// Test 2: Open fails outside a repository.
func TestOpen_NotARepository(t *testing.T) {
	if _, err := Open(context.Background(), t.TempDir()); err == nil {
		t.Error("expected an error outside a repository")
	}
}

// Test 3: worktree listing covers tracked and untracked files but not
// ignored ones.
func TestFiles_Worktree(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, ".gitignore", "*.log\n")
	writeFile(t, dir, "a.txt", "a\n")
	commitAll(t, dir, "init")
	writeFile(t, dir, "b.txt", "b\n")
	writeFile(t, dir, "c.log", "c\n")

	files, err := openRepo(t, dir).Files(context.Background(), check.Worktree())
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	sort.Strings(files)
	want := []string{".gitignore", "a.txt", "b.txt"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

// Test 4: listing at a revision reflects that revision's tree.
func TestFiles_AtRevision(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "a\n")
	commitAll(t, dir, "one")
	writeFile(t, dir, "sub/d.txt", "d\n")
	commitAll(t, dir, "two")

	files, err := openRepo(t, dir).Files(context.Background(), check.Rev("HEAD~1"))
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0] != "a.txt" {
		t.Errorf("files = %v, want [a.txt]", files)
	}
}

// Test 5: Content reads each side and reports missing paths.
func TestContent_WorktreeAndRevision(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "old\n")
	commitAll(t, dir, "init")
	writeFile(t, dir, "a.txt", "new\n")
	r := openRepo(t, dir)
	ctx := context.Background()

	got, err := r.Content(ctx, check.Worktree(), "a.txt")
	if err != nil || string(got) != "new\n" {
		t.Errorf("worktree content = %q, %v, want %q", got, err, "new\n")
	}
	got, err = r.Content(ctx, check.Rev("HEAD"), "a.txt")
	if err != nil || string(got) != "old\n" {
		t.Errorf("HEAD content = %q, %v, want %q", got, err, "old\n")
	}
	if _, err := r.Content(ctx, check.Worktree(), "missing.txt"); !errors.Is(err, check.ErrNotFound) {
		t.Errorf("worktree missing: err = %v, want ErrNotFound", err)
	}
	if _, err := r.Content(ctx, check.Rev("HEAD"), "missing.txt"); !errors.Is(err, check.ErrNotFound) {
		t.Errorf("HEAD missing: err = %v, want ErrNotFound", err)
	}
}

// Test 6: an in-place edit diffs to exactly the touched line.
func TestDiff_SingleLineEdit(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "one\ntwo\nthree\n")
	writeFile(t, dir, "b.txt", "stays\n")
	commitAll(t, dir, "init")
	writeFile(t, dir, "a.txt", "one\nTWO\nthree\n")

	hunks, err := openRepo(t, dir).Diff(context.Background(), check.Rev("HEAD"), check.Worktree())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got := lineSet(t, hunks, "a.txt").String(); got != "2" {
		t.Errorf("a.txt lines = %s, want 2", got)
	}
	if _, ok := hunks["b.txt"]; ok {
		t.Error("b.txt should not appear in the diff")
	}
}

// Test 7: untracked files count as wholly changed.
func TestDiff_UntrackedWholeFile(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "a\n")
	commitAll(t, dir, "init")
	writeFile(t, dir, "new.txt", "x\ny\n")

	hunks, err := openRepo(t, dir).Diff(context.Background(), check.Rev("HEAD"), check.Worktree())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got := lineSet(t, hunks, "new.txt").String(); got != "1-2" {
		t.Errorf("new.txt lines = %s, want 1-2", got)
	}
}

// Test 8: a deleted file keeps a diff entry under its old path.
func TestDiff_Deletion(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "gone.txt", "a\nb\n")
	commitAll(t, dir, "init")
	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	hunks, err := openRepo(t, dir).Diff(context.Background(), check.Rev("HEAD"), check.Worktree())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !lineSet(t, hunks, "gone.txt").Any() {
		t.Error("deleted file should register changed lines")
	}
}

// Test 9: an unresolvable base falls back to the empty tree, so every
// file shows as fully changed.
func TestDiff_MissingBase(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "one\ntwo\nthree\n")
	commitAll(t, dir, "init")

	hunks, err := openRepo(t, dir).Diff(context.Background(), check.Rev("no-such-branch"), check.Worktree())
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got := lineSet(t, hunks, "a.txt").String(); got != "1-3" {
		t.Errorf("a.txt lines = %s, want 1-3", got)
	}
}

// Test 10: diffs between two named revisions ignore the worktree.
func TestDiff_BetweenRevisions(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.txt", "one\ntwo\n")
	commitAll(t, dir, "one")
	writeFile(t, dir, "a.txt", "one\nTWO\n")
	commitAll(t, dir, "two")
	writeFile(t, dir, "a.txt", "ONE\nTWO\n")

	hunks, err := openRepo(t, dir).Diff(context.Background(), check.Rev("HEAD~1"), check.Rev("HEAD"))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if got := lineSet(t, hunks, "a.txt").String(); got != "2" {
		t.Errorf("a.txt lines = %s, want 2", got)
	}
}

// Test 11: trailer lines come from commits inside the range only.
func TestTrailerLines_Range(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "base.txt", "base\n")
	commitAll(t, dir, "base\n\nIgnore-if-changed: base.txt -- before the range")
	base := strings.TrimSpace(gitCmd(t, dir, "rev-parse", "HEAD"))

	writeFile(t, dir, "gen.txt", "gen\n")
	commitAll(t, dir, "generate\n\nIgnore-if-changed: gen.txt -- regenerated")
	writeFile(t, dir, "other.txt", "other\n")
	commitAll(t, dir, "no trailer here")

	lines, err := openRepo(t, dir).TrailerLines(context.Background(), check.Rev(base), check.Worktree())
	if err != nil {
		t.Fatalf("trailers: %v", err)
	}
	if len(lines) != 1 || lines[0] != "Ignore-if-changed: gen.txt -- regenerated" {
		t.Errorf("trailers = %q, want the in-range trailer only", lines)
	}
}

// Test 12: the checker runs end to end against a real repository.
func TestChecker_EndToEnd(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.ts", "// if-changed\nexport const A = 1;\n// then-change(b.ts)\n")
	writeFile(t, dir, "b.ts", "export const B = 1;\n")
	commitAll(t, dir, "init")
	writeFile(t, dir, "a.ts", "// if-changed\nexport const A = 2;\n// then-change(b.ts)\n")

	c := &check.Checker{Repo: openRepo(t, dir), From: check.Rev("HEAD"), To: check.Worktree()}
	report, err := c.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `expected "b.ts" to be modified because of "then-change" in "a.ts" at line 3`
	if len(report.Violations) != 1 || report.Violations[0].String() != want {
		t.Fatalf("violations = %v, want %q", report.Violations, want)
	}

	writeFile(t, dir, "b.ts", "export const B = 2;\n")
	report, err = c.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(report.Violations) != 0 {
		t.Errorf("violations after fixing = %v, want none", report.Violations)
	}
}
