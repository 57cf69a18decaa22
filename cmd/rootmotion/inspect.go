package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-rootmotion/engine/curve_store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [graph]",
	Short: "List persisted curves and graph manifests",
	Long:  `Without arguments, lists every persisted curve and graph. With a graph name, prints that graph's manifest as YAML.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		storeOpts, err := cfg.StoreOptions()
		if err != nil {
			return err
		}
		store, err := curve_store.NewCurveStore(storeOpts...)
		if err != nil {
			return fmt.Errorf("open curve store: %w", err)
		}
		defer store.Close()

		if len(args) == 1 {
			return printManifest(cmd.Context(), cmd.OutOrStdout(), store, args[0])
		}
		return printInventory(cmd.Context(), cmd.OutOrStdout(), store)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func printInventory(ctx context.Context, w io.Writer, store curve_store.CurveStore) error {
	paths, err := store.ListCurves(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "curves (%d):\n", len(paths))
	for _, p := range paths {
		rec, err := store.LoadCurve(ctx, p)
		if err != nil {
			return fmt.Errorf("load curve %q: %w", p, err)
		}
		fmt.Fprintf(w, "  %s\t%d samples\n", p, len(rec.Timestamps))
	}

	graphs, err := store.ListManifests(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "graphs (%d):\n", len(graphs))
	for _, g := range graphs {
		fmt.Fprintf(w, "  %s\n", g)
	}
	return nil
}

func printManifest(ctx context.Context, w io.Writer, store curve_store.CurveStore, graph string) error {
	m, err := store.LoadManifest(ctx, graph)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
