// Package gitscope narrows an analysis run to files git says changed
// recently, driving `git log` the same way project history reporting
// does elsewhere in this tree: a subprocess per call, stdout parsed
// line by line, failures downgraded to "no scope" rather than aborting
// the run.
package gitscope

import (
	"os/exec"
	"strings"
)

// ChangedSince returns the set of *.go files, relative to dir, touched
// by any commit since the given git --since duration (e.g. "2 weeks
// ago", "2024-01-01"). A nil error with an empty, non-nil set means
// git ran but nothing matched; a non-nil error means dir isn't a git
// checkout or git isn't on PATH — callers should treat that as "scope
// everything" rather than fail the run.
func ChangedSince(dir, since string) (map[string]bool, error) {
	cmd := exec.Command("git", "log", "--since="+since, "--name-only", "--no-merges", "--pretty=format:")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasSuffix(line, ".go") {
			continue
		}
		files[line] = true
	}
	return files, nil
}
