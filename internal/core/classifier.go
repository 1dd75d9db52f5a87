package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mxbmm/internal/domain"
)

// Classification is the result of inspecting a dropped file
type Classification struct {
	Kind          domain.PayloadKind
	Candidates    []string // Category IDs, best guess first
	Preferred     int      // Leading candidates picked by extension
	SuggestedName string
}

// Classify determines the payload kind of a dropped file from its extension.
// No content sniffing is done.
func Classify(path string, registry *domain.Registry) (Classification, error) {
	kind := DetectKind(path)
	if kind == domain.PayloadUnknown {
		return Classification{}, domain.NewClassificationError(domain.ErrUnrecognized, path,
			errors.New("supported: .zip, .pkz and .pnt"))
	}

	info, err := os.Stat(path)
	if err != nil {
		return Classification{}, domain.NewClassificationError(domain.ErrIoFailure, path, err)
	}
	if info.IsDir() {
		return Classification{}, domain.NewClassificationError(domain.ErrUnrecognized, path, fs.ErrInvalid)
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	c := Classification{Kind: kind}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pnt":
		// Paints keep their extension so the game still picks them up
		c.SuggestedName = base
		c.Candidates = knownCategories(registry,
			domain.CategoryRiderPaints,
			domain.CategoryBikePaints,
			domain.CategoryHelmetPaints,
			domain.CategoryBootPaints,
		)
	case ".pkz":
		c.SuggestedName = stem
		c.Candidates = knownCategories(registry,
			domain.CategoryTracks,
			domain.CategoryBikesMotocross,
			domain.CategoryBikesSupercross,
		)
	default:
		c.SuggestedName = stem
	}

	c.Preferred = len(c.Candidates)

	// Anything is a valid target, so fill up with the rest of the registry
	seen := make(map[string]bool, len(c.Candidates))
	for _, id := range c.Candidates {
		seen[id] = true
	}
	for _, id := range registry.IDs() {
		if !seen[id] {
			c.Candidates = append(c.Candidates, id)
		}
	}

	if c.SuggestedName == "" {
		c.SuggestedName = "mod"
	}

	return c, nil
}

// DetectKind returns the payload kind based on filename extension
func DetectKind(filename string) domain.PayloadKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip", ".pkz":
		return domain.PayloadArchive
	case ".pnt":
		return domain.PayloadSingleFile
	default:
		return domain.PayloadUnknown
	}
}

func knownCategories(registry *domain.Registry, ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := registry.Get(id); ok {
			out = append(out, id)
		}
	}
	return out
}
