package main

import (
	"mxbmm/internal/logging"
	"mxbmm/internal/tui"
	"mxbmm/internal/watcher"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive interface",
	Long: `Start the interactive interface. Mods can be installed by dropping or
pasting a file path, browsed per category and uninstalled. The mods
directory is watched and the list refreshes on its own; if watching is
not possible, press r to refresh.

Logs go to the log file while the interface is running.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{logFile: true})
	if err != nil {
		return err
	}
	defer e.Close()

	log := logging.Get("tui")

	coord := watcher.New(e.root, e.engine, watcher.Options{Debounce: e.cfg.Debounce})
	if err := coord.Start(); err != nil {
		// Degraded: manual refresh still works
		log.Warn("watching disabled", "error", err)
	}
	defer coord.Close()

	return tui.Run(cmd.Context(), e.engine, coord, tui.NewKeyMap(e.cfg.Keybindings))
}
