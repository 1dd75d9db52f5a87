package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/watcher"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the mods directory and report changes",
	Long: `Watch the mods directory and print mods as they appear or disappear,
whether they were installed by mxbmm or copied in by hand. Stops on Ctrl+C.

With --json, every change is printed as one JSON object per line.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

type watchEventJSON struct {
	Time     time.Time `json:"time"`
	Change   string    `json:"change"`
	Category string    `json:"category"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	prev, err := e.engine.Refresh(ctx)
	if err != nil {
		return err
	}

	coord := watcher.New(e.root, e.engine, watcher.Options{Debounce: e.cfg.Debounce})
	if err := coord.Start(); err != nil {
		return err
	}
	defer coord.Close()

	if !jsonOutput {
		fmt.Fprintf(out, "Watching %s (%d mods). Press Ctrl+C to stop.\n", e.root, prev.Total())
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case u := <-coord.Changes():
			if u.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", colorRed("✗"), domain.UserMessage(u.Err))
			} else {
				added, removed := diffInventory(prev, u.Inventory)
				if err := printChanges(out, added, removed); err != nil {
					return err
				}
				prev = u.Inventory
			}
			if coord.State() == watcher.Degraded {
				return coord.Err()
			}
		}
	}
}

func printChanges(out io.Writer, added, removed []domain.InstalledMod) error {
	now := time.Now()

	if jsonOutput {
		enc := json.NewEncoder(out)
		for _, change := range []struct {
			kind string
			mods []domain.InstalledMod
		}{{"removed", removed}, {"added", added}} {
			for _, m := range change.mods {
				if err := enc.Encode(watchEventJSON{Time: now.UTC(), Change: change.kind, Category: m.Category, Name: m.Name, Path: m.Path}); err != nil {
					return fmt.Errorf("encoding json: %w", err)
				}
			}
		}
		return nil
	}

	stamp := now.Format(time.TimeOnly)
	for _, m := range removed {
		fmt.Fprintf(out, "[%s] %s %s/%s\n", stamp, colorRed("-"), m.Category, m.Name)
	}
	for _, m := range added {
		fmt.Fprintf(out, "[%s] %s %s/%s\n", stamp, colorGreen("+"), m.Category, m.Name)
	}
	return nil
}

// diffInventory returns the mods present only in after and only in before,
// ordered by category then name
func diffInventory(before, after *domain.Inventory) (added, removed []domain.InstalledMod) {
	index := func(inv *domain.Inventory) map[string]domain.InstalledMod {
		m := make(map[string]domain.InstalledMod)
		if inv == nil {
			return m
		}
		for _, mods := range inv.Mods {
			for _, mod := range mods {
				m[mod.Category+"/"+mod.Name] = mod
			}
		}
		return m
	}

	old, cur := index(before), index(after)
	for k, mod := range cur {
		if _, ok := old[k]; !ok {
			added = append(added, mod)
		}
	}
	for k, mod := range old {
		if _, ok := cur[k]; !ok {
			removed = append(removed, mod)
		}
	}

	byKey := func(mods []domain.InstalledMod) {
		sort.Slice(mods, func(i, j int) bool {
			if mods[i].Category != mods[j].Category {
				return mods[i].Category < mods[j].Category
			}
			return mods[i].Name < mods[j].Name
		})
	}
	byKey(added)
	byKey(removed)

	return added, removed
}
