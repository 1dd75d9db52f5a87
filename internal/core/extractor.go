package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"mxbmm/internal/domain"

	"github.com/klauspost/compress/zip"
)

// Extractor unpacks zip-format archives (.zip and .pkz)
type Extractor struct{}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract unpacks archivePath into destDir, which must already exist.
// Every entry is validated before anything is written, so a single unsafe
// entry leaves destDir untouched.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) (err error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return domain.NewInstallError(domain.ErrIoFailure, archivePath, err)
		}
		return domain.NewInstallError(domain.ErrMalformedArchive, archivePath, err)
	}
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = domain.NewInstallError(domain.ErrIoFailure, archivePath, cerr)
		}
	}()

	names := make([]string, len(r.File))
	for i, f := range r.File {
		name, err := EntryPath(f.Name)
		if err != nil {
			return domain.NewInstallError(domain.ErrUnsafeEntryPath, f.Name, err)
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			return domain.NewInstallError(domain.ErrUnsafeEntryPath, f.Name, errors.New("symlink entries are not allowed"))
		}
		names[i] = name
	}
	if err := checkLayout(r.File, names); err != nil {
		return err
	}

	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return domain.NewInstallError(domain.ErrIoFailure, archivePath, err)
		}
		if names[i] == "" {
			continue // the archive root itself
		}
		if err := e.extractFile(ctx, f, filepath.Join(destDir, filepath.FromSlash(names[i]))); err != nil {
			return err
		}
	}

	return nil
}

// extractFile writes a single archive entry to destPath
func (e *Extractor) extractFile(ctx context.Context, f *zip.File, destPath string) (err error) {
	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0755); err != nil {
			return domain.NewInstallError(domain.ErrIoFailure, destPath, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, filepath.Dir(destPath), err)
	}

	rc, err := f.Open()
	if err != nil {
		return domain.NewInstallError(domain.ErrMalformedArchive, f.Name, err)
	}
	defer rc.Close()

	// Keep owner read/write so the mod can always be removed again
	perm := f.Mode().Perm() | 0600
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return domain.NewInstallError(domain.ErrIoFailure, destPath, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = domain.NewInstallError(domain.ErrIoFailure, destPath, cerr)
		}
	}()

	src := &entryReader{ctx: ctx, r: rc}
	if _, err := io.Copy(out, src); err != nil {
		if src.err != nil {
			if ctx.Err() != nil {
				return domain.NewInstallError(domain.ErrIoFailure, f.Name, src.err)
			}
			return domain.NewInstallError(domain.ErrMalformedArchive, f.Name, src.err)
		}
		return domain.NewInstallError(domain.ErrIoFailure, destPath, err)
	}

	return nil
}

// checkLayout rejects archives where one path is used both as a file and
// as a directory, such as a file entry "sub" next to "sub/b.txt"
func checkLayout(files []*zip.File, names []string) error {
	fileEntries := make(map[string]string) // normalized name -> entry name
	dirs := make(map[string]bool)
	for i, f := range files {
		name := names[i]
		if name == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			dirs[name] = true
		} else {
			fileEntries[name] = f.Name
		}
		for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = true
		}
	}

	for name, entry := range fileEntries {
		if dirs[name] {
			return domain.NewInstallError(domain.ErrMalformedArchive, entry,
				fmt.Errorf("%s is both a file and a directory", name))
		}
	}
	return nil
}

// EntryPath normalizes an archive entry name to a clean slash-separated
// relative path. It rejects absolute paths, drive letters and anything
// that climbs out of the extraction root. The root itself maps to "".
func EntryPath(name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", errors.New("entry name contains NUL")
	}
	p := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("absolute entry path: %s", name)
	}
	if len(p) >= 2 && p[1] == ':' {
		return "", fmt.Errorf("entry path has a volume name: %s", name)
	}

	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// entryReader remembers read-side failures so they can be told apart from
// write failures, and stops early when ctx is done.
type entryReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (r *entryReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}
