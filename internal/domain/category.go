package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Category is a logical install location under the mods root
type Category struct {
	ID      string // Stable slug, e.g. "bikes-motocross"
	Label   string // Display name
	Subpath string // Slash-separated path relative to the mods root

	nested map[string]bool // Lowercased names of categories living directly inside this one
}

// Dir returns the absolute category directory under root
func (c Category) Dir(root string) string {
	return filepath.Join(root, filepath.FromSlash(c.Subpath))
}

// IsNested reports whether name is the directory of another category
// nested directly inside this one (e.g. "paints" inside rider/riders).
func (c Category) IsNested(name string) bool {
	return c.nested[strings.ToLower(name)]
}

// Registry is an immutable, ordered set of categories
type Registry struct {
	categories []Category
	byID       map[string]int
}

// NewRegistry builds a registry. IDs must be unique and subpaths must be
// relative, clean and free of parent segments.
func NewRegistry(categories ...Category) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, 0, len(categories)),
		byID:       make(map[string]int, len(categories)),
	}

	for _, c := range categories {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: category with empty id", ErrInvalidConfig)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate category id %q", ErrInvalidConfig, c.ID)
		}
		sub := strings.ReplaceAll(c.Subpath, `\`, "/")
		if sub == "" || path.IsAbs(sub) || path.Clean(sub) != sub || sub == ".." || strings.HasPrefix(sub, "../") {
			return nil, fmt.Errorf("%w: category %q has invalid subpath %q", ErrInvalidConfig, c.ID, c.Subpath)
		}
		c.Subpath = sub
		if c.Label == "" {
			c.Label = c.ID
		}
		c.nested = make(map[string]bool)
		r.byID[c.ID] = len(r.categories)
		r.categories = append(r.categories, c)
	}

	// A category directly inside another one must not show up as a mod of its parent
	for i := range r.categories {
		for j := range r.categories {
			if i == j {
				continue
			}
			child := r.categories[j].Subpath
			if path.Dir(child) == r.categories[i].Subpath {
				r.categories[i].nested[strings.ToLower(path.Base(child))] = true
			}
		}
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on invalid input
func MustRegistry(categories ...Category) *Registry {
	r, err := NewRegistry(categories...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the category with the given ID
func (r *Registry) Get(id string) (Category, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// All returns the categories in registry order. The slice is a copy.
func (r *Registry) All() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// IDs returns category IDs in registry order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.categories))
	for i, c := range r.categories {
		ids[i] = c.ID
	}
	return ids
}

// Len returns the number of categories
func (r *Registry) Len() int {
	return len(r.categories)
}

// MX Bikes category IDs
const (
	CategoryTracks           = "tracks"
	CategoryBikesMotocross   = "bikes-motocross"
	CategoryBikesSupercross  = "bikes-supercross"
	CategoryBikePaints       = "bike-paints"
	CategoryTyres            = "tyres"
	CategoryRiderModels      = "rider-models"
	CategoryRiderPaints      = "rider-paints"
	CategoryRiderGloves      = "rider-gloves"
	CategoryHelmetModels     = "helmet-models"
	CategoryHelmetPaints     = "helmet-paints"
	CategoryBootModels       = "boot-models"
	CategoryBootPaints       = "boot-paints"
	CategoryRiderProtections = "protections"
)

// DefaultRegistry returns the MX Bikes install locations
func DefaultRegistry() *Registry {
	return MustRegistry(
		Category{ID: CategoryTracks, Label: "Tracks", Subpath: "tracks"},
		Category{ID: CategoryBikesMotocross, Label: "Bikes Motocross", Subpath: "bikes/motocross"},
		Category{ID: CategoryBikesSupercross, Label: "Bikes Supercross", Subpath: "bikes/supercross"},
		Category{ID: CategoryBikePaints, Label: "Bike Paints", Subpath: "bikes/paints"},
		Category{ID: CategoryTyres, Label: "Tyres/Wheels", Subpath: "tyres"},
		Category{ID: CategoryRiderModels, Label: "Rider Models", Subpath: "rider/riders"},
		Category{ID: CategoryRiderPaints, Label: "Rider Paints", Subpath: "rider/riders/paints"},
		Category{ID: CategoryRiderGloves, Label: "Rider Gloves", Subpath: "rider/riders/gloves"},
		Category{ID: CategoryHelmetModels, Label: "Helmet Models", Subpath: "rider/helmets"},
		Category{ID: CategoryHelmetPaints, Label: "Helmet Paints", Subpath: "rider/helmets/paints"},
		Category{ID: CategoryBootModels, Label: "Boot Models", Subpath: "rider/boots"},
		Category{ID: CategoryBootPaints, Label: "Boot Paints", Subpath: "rider/boots/paints"},
		Category{ID: CategoryRiderProtections, Label: "Protections", Subpath: "rider/protections"},
	)
}
