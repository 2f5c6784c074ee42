// Package testrun drives `go version`, `go build ./...`, and
// `go test -v -timeout Ns ./...`, each invoked in the scratch directory
// with streamed output, parsed line by line as it arrives.
package testrun

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"goflow/internal/errs"
)

// Result is one subprocess invocation's outcome: exit status plus the
// streamed output lines, in order.
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   []string
	Stderr   []string
	TimedOut bool
}

// Version runs `go version` in dir. A non-zero exit or unusable
// toolchain is an ErrEnvironment.
func Version(ctx context.Context, dir string) (Result, error) {
	res, err := run(ctx, dir, "go", "version")
	if err != nil {
		return res, fmt.Errorf("go toolchain unusable: %w", errs.ErrEnvironment)
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("go version exited %d: %w", res.ExitCode, errs.ErrEnvironment)
	}
	return res, nil
}

// Build runs `go build ./...` in dir. A non-zero exit aborts the
// analysis with the captured stderr.
func Build(ctx context.Context, dir string) (Result, error) {
	res, err := run(ctx, dir, "go", "build", "./...")
	if err != nil {
		return res, fmt.Errorf("go build: %w", errs.ErrBuild)
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("go build ./... failed:\n%s: %w", strings.Join(res.Stderr, "\n"), errs.ErrBuild)
	}
	return res, nil
}

// Test runs `go test -v -timeout {timeoutSeconds}s ./...` with
// cooperative timeout cancellation (§5 "Concurrency & resource model":
// suspension points are subprocess spawn, reading each captured line,
// and subprocess join). A non-zero exit is only surfaced as an error
// when failOnError is set; otherwise the caller inspects Result directly
// and proceeds to reconstruction regardless.
func Test(ctx context.Context, dir string, timeoutSeconds int, extraArgs []string, failOnError bool) (Result, error) {
	args := []string{"test", "-v", fmt.Sprintf("-timeout=%ds", timeoutSeconds), "./..."}
	args = append(args, extraArgs...)

	timeout := time.Duration(timeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	res, err := run(runCtx, dir, "go", args...)
	if runCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
	}
	if err != nil && !res.TimedOut {
		return res, fmt.Errorf("go test: %w", errs.ErrEnvironment)
	}
	if failOnError && res.ExitCode != 0 && !res.TimedOut {
		return res, fmt.Errorf("go test ./... failed with exit %d: %w", res.ExitCode, errs.ErrTest)
	}
	return res, nil
}

// run spawns cmd, streams stdout/stderr line by line into the Result,
// and waits for it to exit (or for ctx to cancel it). It never itself
// treats a non-zero exit as a Go error — callers decide which exit codes
// matter for their contract.
func run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	res := Result{Command: name, Args: args}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return res, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return res, err
	}

	if err := cmd.Start(); err != nil {
		return res, err
	}

	done := make(chan struct{}, 2)
	go func() {
		scanLines(stdoutPipe, &res.Stdout)
		done <- struct{}{}
	}()
	go func() {
		scanLines(stderrPipe, &res.Stderr)
		done <- struct{}{}
	}()
	<-done
	<-done

	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
	}
	if ee, ok := asExitError(waitErr); ok {
		res.ExitCode = ee
		return res, nil
	}
	if waitErr != nil {
		return res, waitErr
	}
	return res, nil
}

func scanLines(r io.Reader, out *[]string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		*out = append(*out, scanner.Text())
	}
}

func asExitError(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	type exitCoder interface{ ExitCode() int }
	if ee, ok := err.(exitCoder); ok {
		return ee.ExitCode(), true
	}
	return 0, false
}
