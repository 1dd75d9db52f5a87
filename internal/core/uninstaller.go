package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"
)

// Uninstaller removes installed mods
type Uninstaller struct {
	registry *domain.Registry
}

// NewUninstaller creates a new Uninstaller
func NewUninstaller(registry *domain.Registry) *Uninstaller {
	return &Uninstaller{registry: registry}
}

// Uninstall removes mod from its category directory under root.
//
// The target is recomputed from the category and name rather than trusted
// from mod.Path, and mod.Path must agree with it when set. An entry that is
// already gone returns (false, nil). Symlinks are removed, never followed.
func (u *Uninstaller) Uninstall(mod domain.InstalledMod, root string) (bool, error) {
	log := logging.Get("uninstaller")

	cat, ok := u.registry.Get(mod.Category)
	if !ok {
		return false, domain.NewUninstallError(domain.ErrUnknownCategory, mod.Category, nil)
	}
	if mod.Name == "" {
		return false, domain.NewUninstallError(domain.ErrEmptyName, "", nil)
	}
	if err := ValidateName(mod.Name, cat); err != nil {
		return false, domain.NewUninstallError(domain.ErrUnsafeName, mod.Name, err)
	}

	target := filepath.Join(cat.Dir(root), mod.Name)
	if mod.Path != "" && filepath.Clean(mod.Path) != target {
		return false, domain.NewUninstallError(domain.ErrUnsafeName, mod.Path,
			errors.New("path is not a direct child of its category directory"))
	}

	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("already removed", "path", target)
		return false, nil
	}
	if err != nil {
		return false, domain.NewUninstallError(domain.ErrIoFailure, target, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("uninstall failed", "path", target, "error", err)
		return false, domain.NewUninstallError(domain.ErrIoFailure, target, err)
	}

	log.Info("uninstalled", "category", cat.ID, "name", mod.Name, "path", target)
	return true, nil
}
