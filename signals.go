package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	. "github.com/openhdl/uartsim/lib"
	"github.com/openhdl/uartsim/lib/units"
)

// signalsCommand lists the traceable signal hierarchy so users can find
// names for the monitor's watch command and judge what each trace level
// captures.
func signalsCommand() *cobra.Command {
	cfg := Default()
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List traceable signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim := NewSim(cfg)
			dut := units.NewTestbench(sim)
			probe := NewProbe()
			dut.Trace(probe, cfg.TraceLevels)
			fmt.Fprint(cmd.OutOrStdout(), signalTree(probe.Signals()))
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.TraceLevels, "levels", cfg.TraceLevels, "hierarchy levels to include")
	return cmd
}

// signalTree renders dotted signal names as an indented scope tree.
// Names share scopes by prefix; the root scope becomes the tree root.
func signalTree(signals []SignalDecl) string {
	if len(signals) == 0 {
		return ""
	}
	root := strings.Split(signals[0].Name, ".")[0]
	tree := treeprint.New()
	tree.SetValue(root)
	branches := map[string]treeprint.Tree{root: tree}
	for _, d := range signals {
		parts := strings.Split(d.Name, ".")
		parent := tree
		for i := 1; i < len(parts)-1; i++ {
			key := strings.Join(parts[:i+1], ".")
			b, ok := branches[key]
			if !ok {
				b = parent.AddBranch(parts[i])
				branches[key] = b
			}
			parent = b
		}
		leaf := parts[len(parts)-1]
		if d.Bits > 1 {
			leaf = fmt.Sprintf("%s [%d:0]", leaf, d.Bits-1)
		}
		parent.AddNode(leaf)
	}
	return tree.String()
}
