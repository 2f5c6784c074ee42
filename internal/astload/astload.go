// Package astload parses a Go project rooted at a directory into a
// file-set mapping byte positions to (file, line, column), an arena of
// AST nodes addressed by opaque handles, and one *ast.File per source
// file. It never mutates what it returns — CFG construction only reads
// from it.
//
// Loading goes through golang.org/x/tools/go/packages rather than a
// bare go/parser.ParseDir: packages.Load resolves build tags, go.mod,
// and multi-package directories the way `go build` would.
package astload

import (
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"goflow/internal/errs"
)

// Handle addresses a node in the Arena. The zero Handle is invalid.
type Handle int

// Arena stores AST nodes keyed by opaque handles, so CFG construction
// carries small integers instead of raw pointers into someone else's
// tree.
type Arena struct {
	nodes []ast.Node
	index map[ast.Node]Handle
}

func newArena() *Arena {
	return &Arena{index: make(map[ast.Node]Handle)}
}

// Handle returns the handle for n, allocating one if n hasn't been seen.
// Returns 0 (invalid) for a nil node.
func (a *Arena) Handle(n ast.Node) Handle {
	if n == nil {
		return 0
	}
	if h, ok := a.index[n]; ok {
		return h
	}
	a.nodes = append(a.nodes, n)
	h := Handle(len(a.nodes))
	a.index[n] = h
	return h
}

// Node dereferences a handle back to its AST node, or nil for an invalid handle.
func (a *Arena) Node(h Handle) ast.Node {
	if h <= 0 || int(h) > len(a.nodes) {
		return nil
	}
	return a.nodes[h-1]
}

// Func describes one function declaration or literal the builder must
// produce a CFG for.
type Func struct {
	Name    string // "pkg.Recv.Method" or "pkg.Name"; synthetic for literals
	File    string // project-relative path
	Package string
	Decl    Handle // handle to *ast.FuncDecl or *ast.FuncLit
	Body    *ast.BlockStmt
	Type    *ast.FuncType
	Pos     token.Pos
	End     token.Pos
}

// Provider is the AST provider's output: a file-set, an arena, the
// parsed files, and the list of functions to build CFGs for.
type Provider struct {
	Fset    *token.FileSet
	Arena   *Arena
	Files   map[string]*ast.File // relative path -> file
	Funcs   []Func
	RootDir string
}

// Options controls which files are visible to the provider.
type Options struct {
	IncludeTestFiles bool
	ExcludePatterns  []string // glob patterns matched against the relative path
}

// DefaultOptions returns the recognition rules used when a caller
// doesn't supply its own.
func DefaultOptions() Options {
	return Options{
		IncludeTestFiles: false,
		ExcludePatterns:  []string{"*_test.go", "vendor/*"},
	}
}

// Load parses the project rooted at dir.
func Load(dir string, opts Options) (*Provider, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project path %s: %w", dir, errs.ErrInput)
	}

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo,
		Dir:  absDir,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages at %s: %w", absDir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no Go packages found under %s: %w", absDir, errs.ErrInput)
	}

	p := &Provider{
		Fset:    cfg.Fset,
		Arena:   newArena(),
		Files:   make(map[string]*ast.File),
		RootDir: absDir,
	}

	var fileErrs int
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			fileErrs++
			_ = e
		}
		for i, file := range pkg.Syntax {
			if i >= len(pkg.CompiledGoFiles) {
				continue
			}
			abs := pkg.CompiledGoFiles[i]
			rel, err := filepath.Rel(absDir, abs)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			rel = filepath.ToSlash(rel)
			if skip(rel, opts) {
				continue
			}
			p.Files[rel] = file

			ast.Inspect(file, func(n ast.Node) bool {
				switch fn := n.(type) {
				case *ast.FuncDecl:
					p.Funcs = append(p.Funcs, Func{
						Name:    funcDeclName(pkg.Name, fn),
						File:    rel,
						Package: pkg.Name,
						Decl:    p.Arena.Handle(fn),
						Body:    fn.Body,
						Type:    fn.Type,
						Pos:     fn.Pos(),
						End:     fn.End(),
					})
				case *ast.FuncLit:
					line := cfg.Fset.Position(fn.Pos()).Line
					col := cfg.Fset.Position(fn.Pos()).Column
					p.Funcs = append(p.Funcs, Func{
						Name:    fmt.Sprintf("%s.func@%d:%d", pkg.Name, line, col),
						File:    rel,
						Package: pkg.Name,
						Decl:    p.Arena.Handle(fn),
						Body:    fn.Body,
						Type:    fn.Type,
						Pos:     fn.Pos(),
						End:     fn.End(),
					})
				}
				return true
			})
		}
	}

	if len(p.Funcs) == 0 {
		return nil, fmt.Errorf("no functions found under %s: %w", absDir, errs.ErrInput)
	}

	sort.Slice(p.Funcs, func(i, j int) bool {
		if p.Funcs[i].File != p.Funcs[j].File {
			return p.Funcs[i].File < p.Funcs[j].File
		}
		return p.Funcs[i].Pos < p.Funcs[j].Pos
	})

	return p, nil
}

func funcDeclName(pkgName string, fn *ast.FuncDecl) string {
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		recvType := exprString(fn.Recv.List[0].Type)
		return fmt.Sprintf("%s.%s.%s", pkgName, recvType, fn.Name.Name)
	}
	return fmt.Sprintf("%s.%s", pkgName, fn.Name.Name)
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return "recv"
	}
}

// skip reports whether rel should be excluded per opts.
func skip(rel string, opts Options) bool {
	if !opts.IncludeTestFiles && strings.HasSuffix(rel, "_test.go") {
		return true
	}
	for _, pat := range opts.ExcludePatterns {
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
		if strings.HasPrefix(pat, "vendor/") && strings.HasPrefix(rel, "vendor/") {
			return true
		}
	}
	return false
}

// Position returns the (file, line, column) for a token.Pos via the
// provider's file-set, with the path relativized to RootDir.
func (p *Provider) Position(pos token.Pos) (file string, line, col int) {
	if !pos.IsValid() {
		return "", 0, 0
	}
	position := p.Fset.Position(pos)
	rel, err := filepath.Rel(p.RootDir, position.Filename)
	if err != nil {
		rel = position.Filename
	}
	return filepath.ToSlash(rel), position.Line, position.Column
}
