package gitscope

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func TestChangedSinceFindsRecentlyCommittedGoFiles(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")

	writeAndCommit := func(name, content string) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		runGit(t, dir, "add", name)
		runGit(t, dir, "commit", "-q", "-m", "add "+name)
	}

	writeAndCommit("a.go", "package p\n")
	writeAndCommit("README.md", "notes\n")
	writeAndCommit("b.go", "package p\n")

	got, err := ChangedSince(dir, "10 years ago")
	if err != nil {
		t.Fatalf("ChangedSince: %v", err)
	}
	if !got["a.go"] || !got["b.go"] {
		t.Errorf("expected a.go and b.go in scope, got %v", got)
	}
	if got["README.md"] {
		t.Error("non-.go files should never appear in scope")
	}
}

func TestChangedSinceEmptyWindowFindsNothing(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "commit", "-q", "--allow-empty", "-m", "root")

	got, err := ChangedSince(dir, "1 second ago")
	if err != nil {
		t.Fatalf("ChangedSince: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files in an empty time window, got %v", got)
	}
}

func TestChangedSinceNonGitDirectoryErrors(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	if _, err := ChangedSince(t.TempDir(), "1 day ago"); err == nil {
		t.Error("expected an error outside a git checkout")
	}
}
