package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"

	"github.com/google/uuid"
)

var (
	// errStagingUnavailable means the staging-then-rename strategy cannot be
	// used and the install must be written in place instead.
	errStagingUnavailable = errors.New("staging unavailable")
	errRenameUnsupported  = errors.New("no-replace rename unsupported")
)

// Installer executes install plans against the filesystem
type Installer struct {
	extractor *Extractor
}

// NewInstaller creates a new Installer
func NewInstaller() *Installer {
	return &Installer{extractor: NewExtractor()}
}

// Execute installs plan. Content is staged in a hidden sibling of the
// destination and renamed into place; if that is not possible it is
// written directly and removed again on failure. Either way nothing is
// left behind when an error is returned.
func (i *Installer) Execute(ctx context.Context, plan domain.Plan) (domain.InstalledMod, error) {
	log := logging.Get("installer")

	exists, err := pathExists(plan.Destination)
	if err != nil {
		return domain.InstalledMod{}, domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
	}
	if exists {
		return domain.InstalledMod{}, domain.NewInstallError(domain.ErrDestinationExists, plan.Destination, nil)
	}

	info, err := os.Stat(plan.Source)
	if err != nil {
		return domain.InstalledMod{}, domain.NewInstallError(domain.ErrIoFailure, plan.Source, err)
	}
	if info.IsDir() {
		return domain.InstalledMod{}, domain.NewInstallError(domain.ErrIoFailure, plan.Source, errors.New("source is a directory"))
	}

	categoryDir := filepath.Dir(plan.Destination)
	if err := os.MkdirAll(categoryDir, 0755); err != nil {
		return domain.InstalledMod{}, domain.NewInstallError(domain.ErrIoFailure, categoryDir, err)
	}

	err = i.installStaged(ctx, plan, categoryDir)
	if errors.Is(err, errStagingUnavailable) {
		log.Warn("staged install unavailable, writing in place", "destination", plan.Destination, "reason", err)
		err = i.installInPlace(ctx, plan)
	}
	if err != nil {
		log.Error("install failed", "destination", plan.Destination, "error", err)
		return domain.InstalledMod{}, err
	}

	log.Info("installed", "category", plan.Category.ID, "name", plan.Name, "destination", plan.Destination)

	return domain.InstalledMod{
		Category: plan.Category.ID,
		Name:     plan.Name,
		Path:     plan.Destination,
		IsDir:    plan.Extract,
	}, nil
}

// installStaged builds the mod under a unique staging path and moves it
// into place with a single rename.
func (i *Installer) installStaged(ctx context.Context, plan domain.Plan, categoryDir string) error {
	staging := filepath.Join(categoryDir, domain.StagingPrefix+uuid.NewString())
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logging.Get("installer").Warn("removing staging path", "path", staging, "error", err)
		}
	}()

	payload := staging
	if plan.Extract {
		if err := os.Mkdir(staging, 0755); err != nil {
			return fmt.Errorf("%w: %v", errStagingUnavailable, err)
		}
		if err := i.extractor.Extract(ctx, plan.Source, staging); err != nil {
			return err
		}
		if plan.FlattenSingleRoot {
			root, err := singleRootDir(staging)
			if err != nil {
				return domain.NewInstallError(domain.ErrIoFailure, staging, err)
			}
			if root != "" {
				payload = root
			}
		}
		writeMetadataBestEffort(payload, plan)
	} else {
		out, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("%w: %v", errStagingUnavailable, err)
		}
		if err := copyInto(ctx, plan.Source, out); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
	}

	err := renameNoReplace(payload, plan.Destination)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errRenameUnsupported):
		return fmt.Errorf("%w: %v", errStagingUnavailable, err)
	case errors.Is(err, fs.ErrExist):
		return domain.NewInstallError(domain.ErrDestinationExists, plan.Destination, nil)
	default:
		return domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
	}
}

// installInPlace writes directly to the destination and removes whatever
// it created if anything goes wrong.
func (i *Installer) installInPlace(ctx context.Context, plan domain.Plan) (err error) {
	created := false
	defer func() {
		if err != nil && created {
			if rerr := os.RemoveAll(plan.Destination); rerr != nil {
				logging.Get("installer").Error("rollback failed", "path", plan.Destination, "error", rerr)
			}
		}
	}()

	if !plan.Extract {
		out, err := os.OpenFile(plan.Destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				return domain.NewInstallError(domain.ErrDestinationExists, plan.Destination, nil)
			}
			return domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
		}
		created = true
		return copyInto(ctx, plan.Source, out)
	}

	if err := os.Mkdir(plan.Destination, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.NewInstallError(domain.ErrDestinationExists, plan.Destination, nil)
		}
		return domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
	}
	created = true

	if err := i.extractor.Extract(ctx, plan.Source, plan.Destination); err != nil {
		return err
	}
	if plan.FlattenSingleRoot {
		if err := flattenInPlace(plan.Destination); err != nil {
			return domain.NewInstallError(domain.ErrIoFailure, plan.Destination, err)
		}
	}
	writeMetadataBestEffort(plan.Destination, plan)

	return nil
}

// copyInto streams src into out and closes out
func copyInto(ctx context.Context, src string, out *os.File) (err error) {
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = domain.NewInstallError(domain.ErrIoFailure, out.Name(), cerr)
		}
	}()

	in, err := os.Open(src)
	if err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, src, err)
	}

	if _, err := io.Copy(out, &entryReader{ctx: ctx, r: in}); err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, out.Name(), err)
	}
	if err := out.Sync(); err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, out.Name(), err)
	}
	if err := out.Chmod(info.Mode().Perm() | 0600); err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, out.Name(), err)
	}

	return nil
}

// singleRootDir returns the only entry of dir when that entry is a
// directory, or "" otherwise.
func singleRootDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", nil
	}
	return filepath.Join(dir, entries[0].Name()), nil
}

// flattenInPlace lifts the contents of a single top-level directory into dir
func flattenInPlace(dir string) error {
	root, err := singleRootDir(dir)
	if err != nil || root == "" {
		return err
	}

	// Move the wrapper aside first, it may contain an entry with its own name
	aside := filepath.Join(dir, domain.StagingPrefix+uuid.NewString())
	if err := os.Rename(root, aside); err != nil {
		return err
	}

	entries, err := os.ReadDir(aside)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Rename(filepath.Join(aside, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(aside)
}
