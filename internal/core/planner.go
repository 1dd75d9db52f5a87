package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mxbmm/internal/domain"
)

// Planner turns a pending install into a validated plan
type Planner struct {
	registry *domain.Registry
}

// NewPlanner creates a new Planner
func NewPlanner(registry *domain.Registry) *Planner {
	return &Planner{registry: registry}
}

// Plan validates the pending install against root and computes its destination.
// It never modifies the filesystem.
func (p *Planner) Plan(pending domain.PendingInstall, root string) (domain.Plan, error) {
	category, ok := p.registry.Get(pending.Category)
	if !ok {
		return domain.Plan{}, domain.NewPlanRejection(domain.ErrUnknownCategory, pending.Category, nil)
	}

	name := strings.TrimSpace(pending.Name)
	if name == "" {
		return domain.Plan{}, domain.NewPlanRejection(domain.ErrEmptyName, "", nil)
	}
	if err := ValidateName(name, category); err != nil {
		return domain.Plan{}, domain.NewPlanRejection(domain.ErrUnsafeName, name, err)
	}

	var extract bool
	switch pending.Kind {
	case domain.PayloadArchive:
		extract = true
	case domain.PayloadSingleFile:
		extract = false
	default:
		return domain.Plan{}, domain.NewClassificationError(domain.ErrUnrecognized, pending.SourcePath, nil)
	}

	destination := filepath.Join(category.Dir(root), name)
	exists, err := pathExists(destination)
	if err != nil {
		return domain.Plan{}, domain.NewInstallError(domain.ErrIoFailure, destination, err)
	}
	if exists {
		return domain.Plan{}, domain.NewPlanRejection(domain.ErrDestinationExists, destination, nil)
	}

	return domain.Plan{
		Source:      pending.SourcePath,
		Destination: destination,
		Extract:     extract,
		Category:    category,
		Name:        name,
		Version:     pending.Version,
		Notes:       pending.Notes,
	}, nil
}

// ValidateName checks that name is a single, plain path element that
// cannot escape or shadow anything inside the category directory.
func ValidateName(name string, category domain.Category) error {
	switch {
	case name == "." || name == "..":
		return errors.New("name cannot be a relative directory reference")
	case strings.ContainsAny(name, `/\`):
		return errors.New("name cannot contain path separators")
	case strings.ContainsRune(name, 0):
		return errors.New("name cannot contain NUL")
	case filepath.Clean(name) != name || filepath.Base(name) != name || filepath.VolumeName(name) != "":
		return errors.New("name is not a plain file name")
	case strings.HasPrefix(name, domain.StagingPrefix):
		return errors.New("name is reserved for in-progress installs")
	case category.IsNested(name):
		return errors.New("name is reserved by a nested category")
	}
	return nil
}

// pathExists reports whether anything (including a dangling symlink) exists at path
func pathExists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
