package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// atomicWriteFile writes data to a temp file next to the real target of path
// and renames it into place. A symlink at path is followed, so the link stays
// and its target gets the new content. The mode is applied before the rename
// so an encrypted document is never briefly world-readable.
func atomicWriteFile(path string, data []byte, secure bool) error {
	target, perm, err := writeTarget(path, secure)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	tmpFile, err := os.CreateTemp(dir, ".slimedit-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

// writeTarget resolves path and picks the mode for the new content. An
// existing file keeps its mode; encrypted saves narrow it to the owner.
func writeTarget(path string, secure bool) (string, os.FileMode, error) {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", 0, err
	}

	perm := os.FileMode(FilePermPlain)
	if secure {
		perm = FilePermSecure
	}

	info, err := os.Stat(target)
	switch {
	case err == nil:
		perm = info.Mode().Perm()
		if secure {
			perm &= FilePermSecure
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", 0, err
	}
	return target, perm, nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
