package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"mxbmm/internal/core"
	"mxbmm/internal/domain"

	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List installed mods",
	Long: `List the mods installed in every category, or in one category.

The list is read straight from the mods directory, so mods copied in by
hand show up too. With --verbose, version and notes recorded at install
time are shown.

Examples:
  mxbmm list
  mxbmm list tracks --verbose`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type listModJSON struct {
	Category    string     `json:"category"`
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	IsDir       bool       `json:"is_dir"`
	Size        int64      `json:"size"`
	Version     string     `json:"version,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	InstalledAt *time.Time `json:"installed_at,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()

	categories := e.engine.Registry().All()
	if len(args) == 1 {
		cat, ok := e.engine.Registry().Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s (see 'mxbmm categories')", domain.ErrUnknownCategory, args[0])
		}
		categories = []domain.Category{cat}
	}

	inv, err := e.engine.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	var mods []domain.InstalledMod
	for _, cat := range categories {
		mods = append(mods, inv.Get(cat.ID)...)
	}

	if jsonOutput {
		items := make([]listModJSON, 0, len(mods))
		for _, mod := range mods {
			item := listModJSON{
				Category: mod.Category,
				Name:     mod.Name,
				Path:     mod.Path,
				IsDir:    mod.IsDir,
				Size:     modSize(mod),
			}
			if meta, _ := core.ReadMetadata(mod.Path); meta != nil {
				item.Version = meta.Version
				item.Notes = meta.Notes
				if !meta.InstalledAt.IsZero() {
					item.InstalledAt = &meta.InstalledAt
				}
			}
			items = append(items, item)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	if verbose {
		fmt.Fprintf(out, "Mods root: %s (from %s)\n\n", e.root, e.source)
	}

	if len(mods) == 0 {
		fmt.Fprintln(out, "No mods installed.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "CATEGORY\tNAME\tTYPE\tSIZE"
	if verbose {
		header += "\tVERSION\tINSTALLED\tNOTES"
	}
	fmt.Fprintln(w, header)

	for _, mod := range mods {
		kind := "file"
		if mod.IsDir {
			kind = "folder"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", mod.Category, truncate(mod.Name, 40), kind, humanize.Bytes(uint64(modSize(mod))))
		if verbose {
			var version, installed, notes string
			meta, err := core.ReadMetadata(mod.Path)
			if err != nil {
				notes = colorYellow("unreadable metadata")
			} else if meta != nil {
				version = meta.Version
				notes = truncate(meta.Notes, 40)
				if !meta.InstalledAt.IsZero() {
					installed = humanize.Time(meta.InstalledAt)
				}
			}
			line += fmt.Sprintf("\t%s\t%s\t%s", version, installed, notes)
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()

	if verbose {
		fmt.Fprintf(out, "\nTotal: %d mod(s)\n", len(mods))
	}

	return nil
}

// modSize returns the size of a file mod or the total size of a folder mod.
// Unreadable entries count as zero.
func modSize(mod domain.InstalledMod) int64 {
	if !mod.IsDir {
		info, err := os.Stat(mod.Path)
		if err != nil {
			return 0
		}
		return info.Size()
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}
	_ = fastwalk.Walk(&conf, mod.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total.Add(info.Size())
		}
		return nil
	})
	return total.Load()
}

// truncate shortens s to max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
