// Package rewrite implements the source rewriter: it copies a project
// into a scratch directory, injects branch- and statement-coverage
// tracker calls derived from an instrumentation plan, and leaves the
// copy in a buildable state.
package rewrite

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"goflow/internal/astload"
	"goflow/internal/cfg"
	"goflow/internal/covplan"
	"goflow/internal/errs"
)

// Config bundles everything the rewriter needs to instrument a project
// copy: the source and scratch roots, the already-loaded AST provider
// and CFGs it was loaded into, and the instrumentation plan to realise.
type Config struct {
	SrcDir     string
	ScratchDir string
	Provider   *astload.Provider
	Graphs     map[string]*cfg.ControlFlowGraph
	Plan       *covplan.Plan
	GoVersion  string // e.g. "1.22", used only if a synthetic go.mod is created
}

// Result reports what the rewrite actually touched.
type Result struct {
	ModulePath        string
	TrackerImport     string
	InstrumentedFiles []string
	SkippedFiles      []string // already carried a BRANCH_COV marker
	Warnings          []string
}

const branchMarker = "BRANCH_COV:"

// Rewrite performs the full scratch-copy-and-instrument pass.
func Rewrite(rcfg Config) (*Result, error) {
	if rcfg.GoVersion == "" {
		rcfg.GoVersion = "1.21"
	}

	if err := copyTree(rcfg.SrcDir, rcfg.ScratchDir, true); err != nil {
		return nil, err
	}

	modulePath, err := ensureModule(rcfg.ScratchDir, rcfg.GoVersion)
	if err != nil {
		return nil, err
	}
	trackerImport := modulePath + "/" + trackerPkgDir

	res := &Result{ModulePath: modulePath, TrackerImport: trackerImport}

	if err := writeTracker(rcfg.ScratchDir); err != nil {
		return nil, err
	}

	funcsByFile := make(map[string][]astload.Func)
	for _, fn := range rcfg.Provider.Funcs {
		funcsByFile[fn.File] = append(funcsByFile[fn.File], fn)
	}

	for rel, file := range rcfg.Provider.Files {
		scratchPath := filepath.Join(rcfg.ScratchDir, filepath.FromSlash(rel))

		already, err := alreadyInstrumented(scratchPath)
		if err != nil {
			return nil, err
		}
		if already {
			res.SkippedFiles = append(res.SkippedFiles, rel)
			continue
		}

		touched := false
		for _, fn := range funcsByFile[rel] {
			if fn.Body == nil {
				continue
			}
			g, ok := rcfg.Graphs[fn.Name]
			if !ok {
				continue
			}
			fp, ok := rcfg.Plan.Functions[fn.Name]
			if !ok {
				continue
			}
			nm := buildNodeMaps(g, fp)
			inj := newInjector(fn.Name, nm)
			fn.Body.List = inj.rewriteList(fn.Body.List)
			if inj.used {
				touched = true
			}
		}

		if !touched {
			continue
		}

		file.Comments = nil // structural edits invalidate comment positions; drop rather than misplace.
		astutil.AddImport(rcfg.Provider.Fset, file, trackerImport)

		var buf bytes.Buffer
		if err := format.Node(&buf, rcfg.Provider.Fset, file); err != nil {
			return nil, fmt.Errorf("format instrumented %s: %w", rel, errs.ErrRewrite)
		}
		if err := os.WriteFile(scratchPath, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("write instrumented %s: %w", rel, errs.ErrRewrite)
		}
		res.InstrumentedFiles = append(res.InstrumentedFiles, rel)
	}

	if err := writePackageTouchFiles(rcfg.Provider, rcfg.Plan, trackerImport, rcfg.ScratchDir); err != nil {
		return nil, err
	}

	return res, nil
}

func alreadyInstrumented(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, errs.ErrRewrite)
	}
	return strings.Contains(string(data), branchMarker), nil
}

func writeTracker(scratchDir string) error {
	dir := filepath.Join(scratchDir, trackerPkgDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, errs.ErrRewrite)
	}
	if err := os.WriteFile(filepath.Join(dir, "tracker.go"), []byte(trackerSource), 0o644); err != nil {
		return fmt.Errorf("write tracker.go: %w", errs.ErrRewrite)
	}
	return nil
}
