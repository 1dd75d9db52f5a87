// Package config provides configuration file parsing and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mxbmm/internal/domain"

	"github.com/adrg/xdg"
)

// EnvModsRoot overrides the configured mods root
const EnvModsRoot = "MXBMM_MODS_ROOT"

// RootSource names where a resolved mods root came from
type RootSource string

const (
	RootFromFlag      RootSource = "flag"
	RootFromEnv       RootSource = "environment"
	RootFromConfig    RootSource = "config"
	RootFromDocuments RootSource = "documents"
	RootFromWorkDir   RootSource = "working directory"
)

// DefaultModsRoot returns the game's mods folder inside the user's documents
func DefaultModsRoot() string {
	return filepath.Join(xdg.UserDirs.Documents, "PiBoSo", "MX Bikes", "mods")
}

// ResolveModsRoot picks the mods root in order of precedence: the --mods-root
// flag, MXBMM_MODS_ROOT, the config file, the documents folder, and finally
// ./mods. Values containing a ".." segment are rejected as given, before
// they are made absolute. The result still has to pass ValidateModsRoot.
func ResolveModsRoot(flagValue string, cfg *Config) (string, RootSource, error) {
	candidates := []struct {
		value  string
		source RootSource
	}{
		{flagValue, RootFromFlag},
		{os.Getenv(EnvModsRoot), RootFromEnv},
	}
	if cfg != nil {
		candidates = append(candidates, struct {
			value  string
			source RootSource
		}{cfg.ModsRoot, RootFromConfig})
	}

	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if hasParentSegment(c.value) {
			return "", c.source, fmt.Errorf("%w: mods root from %s contains invalid traversal: %s", domain.ErrInvalidConfig, c.source, c.value)
		}
		abs, err := filepath.Abs(c.value)
		if err != nil {
			return "", c.source, fmt.Errorf("resolving mods root from %s: %w", c.source, err)
		}
		return abs, c.source, nil
	}

	documents := DefaultModsRoot()
	if isDir(documents) {
		return documents, RootFromDocuments, nil
	}

	if wd, err := os.Getwd(); err == nil {
		local := filepath.Join(wd, "mods")
		if isDir(local) {
			return local, RootFromWorkDir, nil
		}
	}

	// Nothing exists yet; report the documents path so the error names it
	return documents, RootFromDocuments, nil
}

// ValidateModsRoot checks a mods root and returns the cleaned path if valid.
// It returns an error if:
//   - The path is empty
//   - The path is not absolute
//   - The path contains parent directory traversal (..)
//   - The directory does not exist
//   - The path points to a file instead of a directory
//   - The directory is not writable
func ValidateModsRoot(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: mods root cannot be empty", domain.ErrInvalidConfig)
	}

	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: mods root must be absolute", domain.ErrInvalidConfig)
	}

	if hasParentSegment(path) {
		return "", fmt.Errorf("%w: mods root contains invalid traversal", domain.ErrInvalidConfig)
	}

	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: mods root %s does not exist", domain.ErrInvalidConfig, path)
		}
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: mods root %s is a file, not a directory", domain.ErrInvalidConfig, path)
	}

	tmp, err := os.CreateTemp(path, domain.StagingPrefix+"writable-*")
	if err != nil {
		return "", fmt.Errorf("%w: mods root %s is not writable: %w", domain.ErrInvalidConfig, path, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	return path, nil
}

func hasParentSegment(path string) bool {
	return slices.Contains(strings.FieldsFunc(path, isSeparator), "..")
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
