package main

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-blend/engine/graph"
	"github.com/Carmen-Shannon/oxy-blend/engine/layer"
	"github.com/Carmen-Shannon/oxy-blend/engine/loader"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a definition file",
	Long:  `Decodes the definition, resolves every clip, curve and state reference and builds each layer once.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runValidate(cmd, args[0]); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, path string) error {
	def, err := loader.NewLoader(loader.BackendTypeYAML, loader.WithLogger(slog.Default())).Load(path)
	if err != nil {
		return err
	}

	g := graph.NewGraph()
	layers, err := def.Build(g, layer.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer func() {
		for _, l := range layers {
			l.Destroy()
		}
	}()

	out := cmd.OutOrStdout()
	for _, l := range layers {
		fmt.Fprintf(out, "layer %s: %d states\n", l.Name(), l.StateCount())
		for i, s := range l.States() {
			fmt.Fprintf(out, "  [%d] %s (%s, %.3fs)\n", i, s.Name(), s.Kind(), l.StateDuration(i))
		}
	}
	fmt.Fprintf(out, "%s is valid\n", path)
	return nil
}
