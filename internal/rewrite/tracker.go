package rewrite

// trackerPkgDir is the directory (and package name) the generated tracker
// lives under, relative to the scratch module root.
const trackerPkgDir = "goflowtracker"

// trackerSource is the coverage-tracker package body: a concurrent-safe
// statement hit-set keyed by function, a Branch() call that prints the
// branch tracker line directly to stdout, and an ExportTo() routine that
// serialises the statement hit-set to a caller-supplied path. The path is
// explicit rather than a fixed relative name because every instrumented
// package gets its own generated test binary with its own working
// directory — each one bakes in its own absolute destination at rewrite
// time rather than guessing where its sibling packages expect the file.
const trackerSource = `// Code generated by goflow's instrumentation rewriter. DO NOT EDIT.
package goflowtracker

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

var (
	mu   sync.Mutex
	hits = map[string]map[int]struct{}{}
)

// Branch records that a branch instrumentation site executed. It writes
// directly to stdout in the "BRANCH_COV:{id}" form the branch
// reconstructor scans for.
func Branch(id string) {
	fmt.Println("BRANCH_COV:" + id)
}

// Statement records that a statement instrumentation site executed.
func Statement(function string, id int) {
	mu.Lock()
	defer mu.Unlock()
	set, ok := hits[function]
	if !ok {
		set = map[int]struct{}{}
		hits[function] = set
	}
	set[id] = struct{}{}
}

// ExportTo serialises the statement hit-set to path, as a map from
// function name to the sorted list of hit statement ids.
func ExportTo(path string) error {
	mu.Lock()
	defer mu.Unlock()

	out := make(map[string][]int, len(hits))
	for fn, set := range hits {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[fn] = ids
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
`
