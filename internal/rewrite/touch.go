package rewrite

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"goflow/internal/astload"
	"goflow/internal/covplan"
	"goflow/internal/errs"
)

// writePackageTouchFiles generates, for every source directory that owns
// at least one callable analyzed function, a synthetic test file that
// calls each of that directory's functions — a zero-valued receiver for
// methods, zero-valued arguments for parameters, every call wrapped in a
// recover — so the branch and statement trackers already injected into
// those functions fire against real execution rather than sitting dead.
// Each generated file exports whatever it observed to its own absolute,
// per-package coverage file under scratchDir, since "go test ./..." runs
// every package as its own process with its own working directory and
// the scratch tree can't rely on a single shared relative path.
//
// This is goflow's equivalent of the original Rust instrumenter's
// generate_test_runner, which emitted a TestCoverage function calling
// every instrumented function by name; the difference here is that a Go
// project spans many packages (not one program), so the call site has to
// be generated once per package, in that package, to reach unexported
// functions and methods at all.
func writePackageTouchFiles(provider *astload.Provider, plan *covplan.Plan, trackerImport, scratchDir string) error {
	byDir := make(map[string][]astload.Func)
	for _, fn := range provider.Funcs {
		if _, planned := plan.Functions[fn.Name]; !planned {
			continue
		}
		dir := filepath.Dir(fn.File)
		byDir[dir] = append(byDir[dir], fn)
	}

	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for i, dir := range dirs {
		fns := byDir[dir]
		sort.Slice(fns, func(a, b int) bool { return fns[a].Name < fns[b].Name })

		pkgName := packageNameFor(provider, fns)
		if pkgName == "" {
			continue
		}

		outPath := filepath.Join(scratchDir, fmt.Sprintf("goflow-coverage-%d.json", i))
		src, calls := buildTouchSource(provider, fns, pkgName, trackerImport, outPath)
		if calls == 0 {
			continue
		}

		outDir := filepath.Join(scratchDir, filepath.FromSlash(dir))
		if err := os.WriteFile(filepath.Join(outDir, "goflow_touch_test.go"), []byte(src), 0o644); err != nil {
			return fmt.Errorf("write goflow_touch_test.go in %s: %w", dir, errs.ErrRewrite)
		}
	}
	return nil
}

// packageNameFor returns the package clause shared by fns' source file,
// or "" if none of them resolved back to a loaded file.
func packageNameFor(provider *astload.Provider, fns []astload.Func) string {
	for _, fn := range fns {
		if file, ok := provider.Files[fn.File]; ok {
			return file.Name.Name
		}
	}
	return ""
}

// buildTouchSource renders the generated test file for one directory's
// functions, returning the source and how many of them it could actually
// call (generic functions and function literals can't be reached this way
// and are silently skipped).
func buildTouchSource(provider *astload.Provider, fns []astload.Func, pkgName, trackerImport, outPath string) (string, int) {
	var calls [][]string
	imports := map[string]string{}

	for _, fn := range fns {
		node := provider.Arena.Node(fn.Decl)
		fd, ok := node.(*ast.FuncDecl)
		if !ok {
			continue // function literal: not independently callable
		}
		if fd.Type.TypeParams != nil {
			continue // generic function: no type argument to instantiate with
		}

		lines, used, ok := buildCallStatements(provider.Fset, fd, importsOf(provider.Files[fn.File]))
		if !ok {
			continue
		}
		for ident, path := range used {
			imports[ident] = path
		}
		calls = append(calls, lines)
	}
	if len(calls) == 0 {
		return "", 0
	}

	var b strings.Builder
	b.WriteString("// Code generated by goflow's instrumentation rewriter. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "package %s\n\n", pkgName)

	b.WriteString("import (\n")
	b.WriteString("\t\"os\"\n")
	b.WriteString("\t\"testing\"\n\n")
	fmt.Fprintf(&b, "\t%s\n", strconv.Quote(trackerImport))
	idents := make([]string, 0, len(imports))
	for ident := range imports {
		idents = append(idents, ident)
	}
	sort.Strings(idents)
	for _, ident := range idents {
		fmt.Fprintf(&b, "\t%s %s\n", ident, strconv.Quote(imports[ident]))
	}
	b.WriteString(")\n\n")

	b.WriteString("func TestMain(m *testing.M) {\n")
	b.WriteString("\tcode := m.Run()\n")
	fmt.Fprintf(&b, "\t_ = goflowtracker.ExportTo(%s)\n", strconv.Quote(outPath))
	b.WriteString("\tos.Exit(code)\n")
	b.WriteString("}\n\n")

	b.WriteString("func TestTouchAll(t *testing.T) {\n")
	for _, lines := range calls {
		b.WriteString("\tfunc() {\n")
		b.WriteString("\t\tdefer func() { recover() }()\n")
		for _, line := range lines {
			fmt.Fprintf(&b, "\t\t%s\n", line)
		}
		b.WriteString("\t}()\n")
	}
	b.WriteString("}\n")

	return b.String(), len(calls)
}

// buildCallStatements renders the statements needed to call fd once: a
// zero-valued local for every non-variadic parameter (a variadic
// parameter is simply passed nothing, which is always valid), a
// zero-valued receiver for a method, and the call itself. false means fd
// can't be rendered this way (a parameter or receiver type couldn't be
// printed).
func buildCallStatements(fset *token.FileSet, fd *ast.FuncDecl, fileImports map[string]string) ([]string, map[string]string, bool) {
	used := map[string]string{}
	var lines []string
	var args []string
	argN := 0

	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			typeExpr := field.Type
			variadic := false
			if ell, isEllipsis := typeExpr.(*ast.Ellipsis); isEllipsis {
				typeExpr = ell.Elt
				variadic = true
			}
			typeStr, ok := printExpr(fset, typeExpr)
			if !ok {
				return nil, nil, false
			}
			collectImports(typeExpr, fileImports, used)

			if variadic {
				continue
			}
			count := len(field.Names)
			if count == 0 {
				count = 1
			}
			for i := 0; i < count; i++ {
				name := fmt.Sprintf("arg%d", argN)
				argN++
				lines = append(lines, fmt.Sprintf("var %s %s", name, typeStr))
				args = append(args, name)
			}
		}
	}

	var call string
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		recvType := fd.Recv.List[0].Type
		pointer := false
		if star, isStar := recvType.(*ast.StarExpr); isStar {
			recvType = star.X
			pointer = true
		}
		recvStr, ok := printExpr(fset, recvType)
		if !ok {
			return nil, nil, false
		}
		collectImports(recvType, fileImports, used)
		if pointer {
			lines = append(lines, fmt.Sprintf("recv := new(%s)", recvStr))
		} else {
			lines = append(lines, fmt.Sprintf("var recv %s", recvStr))
		}
		call = fmt.Sprintf("recv.%s(%s)", fd.Name.Name, strings.Join(args, ", "))
	} else {
		call = fmt.Sprintf("%s(%s)", fd.Name.Name, strings.Join(args, ", "))
	}
	lines = append(lines, call)
	return lines, used, true
}

// printExpr renders a type expression back to Go source text.
func printExpr(fset *token.FileSet, expr ast.Expr) (string, bool) {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, expr); err != nil {
		return "", false
	}
	return buf.String(), true
}

// collectImports finds every package-qualified identifier inside expr
// (e.g. the "time" in "time.Duration") and, if it matches one of the
// declaring file's own imports, records it so the generated file can
// import it too.
func collectImports(expr ast.Expr, fileImports, used map[string]string) {
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok {
			if path, found := fileImports[ident.Name]; found {
				used[ident.Name] = path
			}
		}
		return true
	})
}

// importsOf maps each of file's imported identifiers to its import path,
// skipping blank and dot imports (neither gives a usable qualifier).
func importsOf(file *ast.File) map[string]string {
	out := map[string]string{}
	if file == nil {
		return out
	}
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		var ident string
		switch {
		case spec.Name != nil && (spec.Name.Name == "_" || spec.Name.Name == "."):
			continue
		case spec.Name != nil:
			ident = spec.Name.Name
		default:
			ident = path
			if idx := strings.LastIndex(ident, "/"); idx >= 0 {
				ident = ident[idx+1:]
			}
		}
		out[ident] = path
	}
	return out
}
