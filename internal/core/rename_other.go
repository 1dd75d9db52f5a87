//go:build !linux

package core

import (
	"errors"
	"io/fs"
	"os"
)

// renameNoReplace moves oldpath to newpath unless newpath exists.
// The existence check and the rename are not atomic here; callers already
// hold the engine's write lock.
func renameNoReplace(oldpath, newpath string) error {
	if _, err := os.Lstat(newpath); err == nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(oldpath, newpath); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, fs.ErrExist) {
			return err
		}
		return errRenameUnsupported
	}
	return nil
}
