package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List install categories",
	Long: `List the categories mods can be installed into, with the folder each one
maps to under the mods directory and how many mods it holds.`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

type categoryJSON struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Path      string `json:"path"`
	Installed int    `json:"installed"`
}

func runCategories(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()

	inv, err := e.engine.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	categories := e.engine.Registry().All()

	if jsonOutput {
		items := make([]categoryJSON, 0, len(categories))
		for _, c := range categories {
			items = append(items, categoryJSON{ID: c.ID, Label: c.Label, Path: c.Dir(e.root), Installed: len(inv.Get(c.ID))})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tFOLDER\tMODS")
	for _, c := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, c.Label, c.Subpath, len(inv.Get(c.ID)))
	}
	w.Flush()

	if verbose {
		fmt.Fprintf(out, "\nMods root: %s (from %s)\n", e.root, e.source)
	}

	return nil
}
