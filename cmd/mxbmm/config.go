package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"mxbmm/internal/domain"
	"mxbmm/internal/storage/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the settings from the config file (or the defaults) and the mods
directory mxbmm would use, including where that choice came from.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configSetRootCmd = &cobra.Command{
	Use:   "set-root <path>",
	Short: "Set the MX Bikes mods directory",
	Long: `Save the MX Bikes mods directory in the config file. The directory must
exist and be writable.

Examples:
  mxbmm config set-root "/home/me/Documents/PiBoSo/MX Bikes/mods"`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetRoot,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetRootCmd)

	rootCmd.AddCommand(configCmd)
}

type configShowJSON struct {
	ConfigFile string         `json:"config_file"`
	ModsRoot   string         `json:"mods_root"`
	RootSource string         `json:"mods_root_source"`
	RootError  string         `json:"mods_root_error,omitempty"`
	Settings   *config.Config `json:"settings"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	dir := getConfigDir()
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	root, source, err := config.ResolveModsRoot(modsRoot, cfg)
	if err == nil {
		root, err = config.ValidateModsRoot(root)
	}

	if jsonOutput {
		result := configShowJSON{
			ConfigFile: filepath.Join(dir, config.FileName),
			ModsRoot:   root,
			RootSource: string(source),
			Settings:   cfg,
		}
		if err != nil {
			result.RootError = err.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	data, merr := yaml.Marshal(cfg)
	if merr != nil {
		return fmt.Errorf("marshaling config: %w", merr)
	}

	fmt.Fprintf(out, "# %s\n", filepath.Join(dir, config.FileName))
	fmt.Fprint(out, string(data))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Mods root: %s (from %s)\n", root, source)
	if err != nil {
		fmt.Fprintf(out, "  %s %v\n", colorRed("✗"), err)
	} else {
		fmt.Fprintf(out, "  %s usable\n", colorGreen("✓"))
	}

	return nil
}

func runConfigSetRoot(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return fmt.Errorf("%w: mods root cannot be empty", domain.ErrInvalidConfig)
	}
	abs, _, err := config.ResolveModsRoot(args[0], nil)
	if err != nil {
		return err
	}
	root, err := config.ValidateModsRoot(abs)
	if err != nil {
		return err
	}

	dir := getConfigDir()
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	cfg.ModsRoot = root
	if err := cfg.Save(dir); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Mods root set to %s\n", colorGreen("✓"), root)
	return nil
}
