package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"
)

// Scanner lists installed mods straight from the filesystem
type Scanner struct {
	registry *domain.Registry
}

// NewScanner creates a new Scanner
func NewScanner(registry *domain.Registry) *Scanner {
	return &Scanner{registry: registry}
}

// Scan lists the immediate children of every category directory under root.
// Only an unreadable root fails the scan; a missing or unreadable category
// directory contributes an empty list.
func (s *Scanner) Scan(ctx context.Context, root string) (*domain.Inventory, error) {
	log := logging.Get("scanner")

	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.NewScanError(domain.ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, domain.NewScanError(domain.ErrRootUnreadable, root, errors.New("not a directory"))
	}
	f, err := os.Open(root)
	if err != nil {
		return nil, domain.NewScanError(domain.ErrRootUnreadable, root, err)
	}
	f.Close()

	inv := &domain.Inventory{
		Root:      root,
		ScannedAt: time.Now(),
		Mods:      make(map[string][]domain.InstalledMod, s.registry.Len()),
	}

	for _, cat := range s.registry.All() {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewScanError(domain.ErrRootUnreadable, root, err)
		}

		dir := cat.Dir(root)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn("category unreadable", "category", cat.ID, "dir", dir, "error", err)
			}
			continue
		}

		mods := make([]domain.InstalledMod, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, domain.StagingPrefix) || cat.IsNested(name) {
				continue
			}
			mods = append(mods, domain.InstalledMod{
				Category: cat.ID,
				Name:     name,
				Path:     filepath.Join(dir, name),
				IsDir:    e.IsDir(),
			})
		}
		domain.SortMods(mods)
		if len(mods) > 0 {
			inv.Mods[cat.ID] = mods
		}
	}

	log.Debug("scan complete", "root", root, "mods", inv.Total())
	return inv, nil
}
