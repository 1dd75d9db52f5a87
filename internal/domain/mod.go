package domain

import (
	"sort"
	"strings"
	"time"
)

// PayloadKind describes how a dropped file is installed
type PayloadKind int

const (
	PayloadUnknown    PayloadKind = iota
	PayloadArchive                // Extracted into a new directory
	PayloadSingleFile             // Copied as-is; the destination is the file itself
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadArchive:
		return "archive"
	case PayloadSingleFile:
		return "single-file"
	default:
		return "unknown"
	}
}

// StagingPrefix marks in-progress install paths inside a category directory.
// Scans and the watcher ignore anything carrying it.
const StagingPrefix = ".mxbmm-staging-"

// MetadataFile is written inside archive installs when version or notes are given
const MetadataFile = "_mxbmm_meta.yaml"

// PendingInstall is a dropped file waiting for the user to confirm details
type PendingInstall struct {
	SourcePath string
	Kind       PayloadKind
	Category   string // Category ID, user-settable
	Name       string // Install name, user-editable
	Version    string // Advisory only
	Notes      string // Advisory only
	Candidates []string
}

// Plan is a validated, not-yet-executed install
type Plan struct {
	Source            string
	Destination       string
	Extract           bool
	Category          Category
	Name              string
	Version           string
	Notes             string
	FlattenSingleRoot bool
}

// InstalledMod is one top-level entry directly under a category directory
type InstalledMod struct {
	Category string // Category ID
	Name     string // Entry file name; this is the identity
	Path     string
	IsDir    bool
}

// Inventory is a point-in-time snapshot of installed mods per category
type Inventory struct {
	Root      string
	ScannedAt time.Time
	Mods      map[string][]InstalledMod

	// Generation numbers an engine's scans in the order they ran, starting
	// at 1. Zero means unnumbered.
	Generation uint64
}

// Get returns the mods of one category (nil when empty)
func (inv *Inventory) Get(categoryID string) []InstalledMod {
	if inv == nil {
		return nil
	}
	return inv.Mods[categoryID]
}

// Find returns the mod with the given name in a category
func (inv *Inventory) Find(categoryID, name string) (InstalledMod, bool) {
	for _, m := range inv.Get(categoryID) {
		if m.Name == name {
			return m, true
		}
	}
	return InstalledMod{}, false
}

// Total returns the number of mods across all categories
func (inv *Inventory) Total() int {
	if inv == nil {
		return 0
	}
	n := 0
	for _, mods := range inv.Mods {
		n += len(mods)
	}
	return n
}

// SortMods orders mods case-insensitively by name, with exact name as tiebreaker
func SortMods(mods []InstalledMod) {
	sort.Slice(mods, func(i, j int) bool {
		a, b := strings.ToLower(mods[i].Name), strings.ToLower(mods[j].Name)
		if a != b {
			return a < b
		}
		return mods[i].Name < mods[j].Name
	})
}

// ModMetadata is the advisory record stored in MetadataFile
type ModMetadata struct {
	Category    string    `yaml:"category"`
	Version     string    `yaml:"version,omitempty"`
	Archive     string    `yaml:"archive,omitempty"`
	Notes       string    `yaml:"notes,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// JournalOp names an operation recorded in the history journal
type JournalOp string

const (
	JournalInstall   JournalOp = "install"
	JournalUninstall JournalOp = "uninstall"
)

// JournalEntry is one recorded install or uninstall attempt
type JournalEntry struct {
	ID       int64
	Time     time.Time
	Op       JournalOp
	Category string
	Name     string
	Path     string
	Version  string
	Notes    string
	Success  bool
	Error    string
}
