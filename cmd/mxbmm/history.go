package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/storage/db"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	historyCategory string
	historyName     string
	historyPrune    time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show install and uninstall history",
	Long: `Show the journal of install and uninstall attempts, newest first.

The journal is a log only: what is installed is always read from the mods
directory. Use --prune-older-than to drop old entries.

Examples:
  mxbmm history
  mxbmm history --category tracks --limit 50
  mxbmm history --prune-older-than 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries (0 for all)")
	historyCmd.Flags().StringVarP(&historyCategory, "category", "c", "", "only show this category")
	historyCmd.Flags().StringVarP(&historyName, "name", "n", "", "only show this mod name")
	historyCmd.Flags().DurationVar(&historyPrune, "prune-older-than", 0, "delete entries older than this duration")

	rootCmd.AddCommand(historyCmd)
}

type historyJSON struct {
	Time     time.Time `json:"time"`
	Op       string    `json:"op"`
	Category string    `json:"category"`
	Name     string    `json:"name"`
	Path     string    `json:"path,omitempty"`
	Version  string    `json:"version,omitempty"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := initEnv(envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	if e.journal == nil {
		if !e.cfg.Journal {
			return errors.New("history journal is disabled; set 'journal: true' in the config")
		}
		return errors.New("history journal is unavailable (see log output)")
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if historyPrune > 0 {
		n, err := e.journal.PruneBefore(ctx, time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintf(out, "Pruned %d entr%s\n\n", n, plural(n, "y", "ies"))
		}
	}

	entries, err := e.journal.History(ctx, db.HistoryQuery{
		Category: historyCategory,
		Name:     historyName,
		Limit:    historyLimit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		items := make([]historyJSON, 0, len(entries))
		for _, entry := range entries {
			items = append(items, historyJSON{
				Time:     entry.Time.UTC(),
				Op:       string(entry.Op),
				Category: entry.Category,
				Name:     entry.Name,
				Path:     entry.Path,
				Version:  entry.Version,
				Success:  entry.Success,
				Error:    entry.Error,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tOP\tCATEGORY\tNAME\tRESULT")
	for _, entry := range entries {
		when := humanize.Time(entry.Time)
		if verbose {
			when = entry.Time.Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", when, entry.Op, entry.Category, truncate(entry.Name, 40), historyResult(entry))
	}
	w.Flush()

	return nil
}

func historyResult(entry domain.JournalEntry) string {
	switch {
	case !entry.Success:
		return colorRed("failed: " + entry.Error)
	case entry.Error != "":
		return colorYellow(entry.Error)
	default:
		return colorGreen("ok")
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
