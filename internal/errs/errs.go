// Package errs defines the error kinds from the analysis pipeline's error
// handling design: environment, input, build, test, plan, rewrite,
// reconstruction, and threshold failures. Each kind is a sentinel error
// wrapped with fmt.Errorf("%w") so callers can errors.Is/errors.As to the
// category while still seeing the offending path/function/block in the
// message, matching the plain wrapped-error style used throughout the
// module's subprocess and file-loading code.
package errs

import "errors"

// Sentinel kinds. Wrap one of these with fmt.Errorf("...: %w", ErrX) to
// produce a concrete, inspectable error.
var (
	// ErrEnvironment covers a missing Go toolchain or an unusable scratch directory.
	ErrEnvironment = errors.New("environment error")
	// ErrInput covers a missing project path, no *.go files, no functions, or a go.mod parse failure.
	ErrInput = errors.New("input error")
	// ErrBuild covers a non-zero `go build` in the scratch directory.
	ErrBuild = errors.New("build error")
	// ErrTest covers a non-zero `go test`, surfaced only when fail_on_error is set.
	ErrTest = errors.New("test error")
	// ErrPlan covers a statement/branch plan referencing a function absent
	// from the CFG set — an internal invariant violation, always fatal.
	ErrPlan = errors.New("plan error")
	// ErrRewrite covers a failure to read or write a source file during instrumentation.
	ErrRewrite = errors.New("rewrite error")
	// ErrReconstruction covers a missing or malformed coverage sidecar; reconstruction
	// degrades to "no data" rather than treating this as fatal.
	ErrReconstruction = errors.New("reconstruction error")
	// ErrThreshold covers coverage below min_coverage_threshold (fail_on_low_coverage)
	// or complexity above max_allowed_complexity (fail-on-high-complexity).
	ErrThreshold = errors.New("threshold error")
)

// Is reports whether err ultimately wraps one of the sentinel kinds above.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
