package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <category> <name>",
	Short: "Uninstall a mod",
	Long: `Remove an installed mod from the mods directory.

The mod is identified by its category ID and its folder or file name, as
shown by 'mxbmm list'. Folders are removed with everything inside them.

Examples:
  mxbmm uninstall tracks "Loretta Lynn"
  mxbmm uninstall helmet-paints blue.pnt --yes`,
	Args: cobra.ExactArgs(2),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "skip confirmation prompt")

	rootCmd.AddCommand(uninstallCmd)
}

type uninstallJSON struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Removed  bool   `json:"removed"`
}

func runUninstall(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()

	mod, err := e.engine.Find(args[0], args[1])
	if err != nil {
		return err
	}

	// Confirmation prompt
	if !uninstallYes {
		kind := "file"
		if mod.IsDir {
			kind = "folder and everything in it"
		}
		fmt.Fprintf(out, "This will delete the %s:\n  %s\n", kind, mod.Path)
		fmt.Fprint(out, "\nContinue? [y/N] ")

		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return ErrCancelled
		}
	}

	removed, err := e.engine.Uninstall(cmd.Context(), mod)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(uninstallJSON{Category: mod.Category, Name: mod.Name, Path: mod.Path, Removed: removed}); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	if !removed {
		fmt.Fprintf(out, "%s %s was already gone\n", colorYellow("!"), mod.Name)
		return nil
	}
	fmt.Fprintf(out, "%s Uninstalled: %s\n", colorGreen("✓"), mod.Name)

	return nil
}
