package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	installCategory string
	installName     string
	installVersion  string
	installNotes    string
	installFlatten  bool
)

var installCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Install a mod file",
	Long: `Install a .zip, .pkz or .pnt file into the mods directory.

Archives are extracted into a new folder named after the archive; paint
files are copied as-is. The category is guessed from the file type unless
--category is given. Nothing is ever overwritten: installing over an
existing mod fails.

Examples:
  mxbmm install ~/Downloads/loretta.zip
  mxbmm install ~/Downloads/loretta.zip --name "Loretta Lynn" --version 1.2
  mxbmm install ~/Downloads/blue.pnt --category helmet-paints`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installCategory, "category", "c", "", "category ID (see 'mxbmm categories')")
	installCmd.Flags().StringVarP(&installName, "name", "n", "", "install name (default: derived from the file name)")
	installCmd.Flags().StringVar(&installVersion, "version", "", "version to record with the mod")
	installCmd.Flags().StringVar(&installNotes, "notes", "", "notes to record with the mod")
	installCmd.Flags().BoolVar(&installFlatten, "flatten", false, "unwrap archives that contain a single top-level folder")

	rootCmd.AddCommand(installCmd)
}

type installJSON struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
}

func runInstall(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{flatten: installFlatten})
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()

	pending, err := e.engine.Drop(args[0])
	if err != nil {
		return err
	}

	if installCategory != "" {
		pending.Category = installCategory
	}
	if installName != "" {
		pending.Name = installName
	}
	pending.Version = installVersion
	pending.Notes = installNotes

	if _, err := e.engine.UpdatePending(pending); err != nil {
		return err
	}

	if verbose && !jsonOutput {
		fmt.Fprintf(out, "Installing %s (%s) as %q into %s...\n", args[0], pending.Kind, pending.Name, pending.Category)
	}

	mod, err := e.engine.Confirm(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(installJSON{Category: mod.Category, Name: mod.Name, Path: mod.Path, IsDir: mod.IsDir}); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	cat, _ := e.engine.Registry().Get(mod.Category)
	fmt.Fprintf(out, "%s Installed: %s\n", colorGreen("✓"), mod.Name)
	fmt.Fprintf(out, "  Category: %s\n", cat.Label)
	fmt.Fprintf(out, "  Path: %s\n", mod.Path)

	return nil
}
