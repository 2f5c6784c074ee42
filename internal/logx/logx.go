// Package logx reports pipeline progress with an elapsed-time prefix,
// backed by a structured zap logger so each phase can carry fields
// (function, block id, file) alongside the human-readable elapsed-time
// line.
package logx

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Progress reports pipeline progress with an elapsed-time prefix:
// Log always prints, Verbose only when enabled.
type Progress struct {
	start   time.Time
	verbose bool
	sugar   *zap.SugaredLogger
}

// New creates a progress reporter. verbose gates Verbose() calls.
func New(verbose bool) *Progress {
	var zl *zap.Logger
	var err error
	if verbose {
		zl, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		cfg.DisableCaller = true
		zl, err = cfg.Build()
	}
	if err != nil {
		zl = zap.NewNop()
	}
	return &Progress{
		start:   time.Now(),
		verbose: verbose,
		sugar:   zl.Sugar(),
	}
}

// Log prints a progress message with an elapsed "[mm:ss]" prefix, and
// also emits it through the underlying structured logger at Info level.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	p.sugar.Infof("[%02d:%02d] %s", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Warn reports a non-fatal structural diagnostic (unresolved goto,
// dangling successor) — these never abort the analysis, per the error
// handling design, but must be visible.
func (p *Progress) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.sugar.Warnf("%s", msg)
}

// With returns a child Progress whose structured log lines carry the
// given key/value pairs (e.g. "function", name), while sharing the
// elapsed-time clock of the parent.
func (p *Progress) With(kv ...any) *Progress {
	return &Progress{
		start:   p.start,
		verbose: p.verbose,
		sugar:   p.sugar.With(kv...),
	}
}

// Sync flushes any buffered log entries. Call before process exit.
func (p *Progress) Sync() {
	_ = p.sugar.Sync()
}
