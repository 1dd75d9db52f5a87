package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"mxbmm/internal/domain"
	"mxbmm/internal/logging"

	"gopkg.in/yaml.v3"
)

// ReadMetadata loads the install metadata stored inside an archive install.
// A mod without metadata returns (nil, nil).
func ReadMetadata(modPath string) (*domain.ModMetadata, error) {
	info, err := os.Stat(modPath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(modPath, domain.MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var meta domain.ModMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return &meta, nil
}

func writeMetadata(dir string, plan domain.Plan) error {
	meta := domain.ModMetadata{
		Category:    plan.Category.ID,
		Version:     plan.Version,
		Archive:     filepath.Base(plan.Source),
		Notes:       plan.Notes,
		InstalledAt: time.Now().UTC().Truncate(time.Second),
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, domain.MetadataFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// writeMetadataBestEffort records version and notes when the user gave any.
// Metadata is advisory, so a failure here never fails the install. A
// metadata file shipped inside the archive is left alone.
func writeMetadataBestEffort(dir string, plan domain.Plan) {
	if plan.Version == "" && plan.Notes == "" {
		return
	}
	err := writeMetadata(dir, plan)
	if errors.Is(err, fs.ErrExist) {
		logging.Get("installer").Warn("archive already contains a metadata file, keeping it", "dir", dir)
		return
	}
	if err != nil {
		logging.Get("installer").Warn("install metadata not written", "dir", dir, "error", err)
	}
}
