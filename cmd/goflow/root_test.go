package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"analyze": false, "cfg": false, "complexity": false, "cover": false}
	for _, c := range root.Commands() {
		name := c.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered on the root command", name)
		}
	}
}

func TestRootCmdHasPersistentConfigAndVerboseFlags(t *testing.T) {
	root := newRootCmd()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected a persistent --config flag")
	}
	if root.PersistentFlags().Lookup("verbose") == nil {
		t.Error("expected a persistent --verbose flag")
	}
}

func TestCoverAndAnalyzeAcceptSimulateAndExportFlags(t *testing.T) {
	for _, c := range []*cobra.Command{newCoverCmd(), newAnalyzeCmd()} {
		for _, flag := range []string{"simulate", "export-path", "format", "out"} {
			if c.Flags().Lookup(flag) == nil {
				t.Errorf("%s: expected a --%s flag", c.Name(), flag)
			}
		}
	}
}

func TestComplexityCmdAcceptsThresholdFlags(t *testing.T) {
	c := newComplexityCmd()
	for _, flag := range []string{"fail-on-high-complexity", "max-allowed-complexity"} {
		if c.Flags().Lookup(flag) == nil {
			t.Errorf("complexity: expected a --%s flag", flag)
		}
	}
}

func TestCFGCmdAcceptsFormatFlag(t *testing.T) {
	c := newCFGCmd()
	if c.Flags().Lookup("format") == nil {
		t.Error("cfg: expected a --format flag")
	}
}
