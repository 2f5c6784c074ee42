package main

import (
	"fmt"
	"go/ast"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"goflow/internal/astload"
	"goflow/internal/cfg"
	"goflow/internal/config"
	"goflow/internal/errs"
	"goflow/internal/gitscope"
	"goflow/internal/logx"
)

var (
	flagConfigFile string
	flagVerbose    bool
	flagSince      string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goflow",
		Short: "Control-flow analysis, complexity, and source-level coverage for Go source trees",
	}
	root.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a goflow.yaml config file (default: ./goflow.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print detailed progress")
	root.PersistentFlags().StringVar(&flagSince, "since", "", "only analyze functions in *.go files git says changed since this duration (e.g. \"2 weeks ago\"); requires a git checkout")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newCFGCmd())
	root.AddCommand(newComplexityCmd())
	root.AddCommand(newCoverCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig binds cobra flags already parsed on cmd into viper and
// resolves the full Config, following internal/config's documented
// precedence: flags > config file > defaults.
func loadConfig(cmd *cobra.Command) (config.Config, *logx.Progress, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v, flagConfigFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	return cfg, logx.New(cfg.Verbose), nil
}

// loadGraphs parses the project at dir and builds one CFG per function,
// shared by every subcommand that needs the core's output without
// running the instrumentation/rewrite/test stages. When --since is set,
// functions outside the files git reports changed in that window are
// dropped before CFG construction.
func loadGraphs(dir string, cfg2 config.Config, prog *logx.Progress) (*astload.Provider, map[string]*cfg.ControlFlowGraph, map[string]*ast.BlockStmt, error) {
	opts := astload.Options{
		IncludeTestFiles: cfg2.IncludeTestFiles,
		ExcludePatterns:  cfg2.ExcludePatterns,
	}
	provider, err := astload.Load(dir, opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load project %s: %w", dir, errs.ErrInput)
	}

	funcs := provider.Funcs
	if flagSince != "" {
		scope, scopeErr := gitscope.ChangedSince(dir, flagSince)
		if scopeErr != nil {
			prog.Warn("--since %q ignored: %v", flagSince, scopeErr)
		} else {
			var scoped []astload.Func
			for _, fn := range provider.Funcs {
				if scope[fn.File] {
					scoped = append(scoped, fn)
				}
			}
			prog.Log("--since %q scoped %d/%d functions to recently changed files", flagSince, len(scoped), len(provider.Funcs))
			funcs = scoped
		}
	}

	graphs := make(map[string]*cfg.ControlFlowGraph, len(funcs))
	bodies := make(map[string]*ast.BlockStmt, len(funcs))
	for _, fn := range funcs {
		graphs[fn.Name] = cfg.Build(provider.Fset, fn)
		bodies[fn.Name] = fn.Body
	}
	return provider, graphs, bodies, nil
}
