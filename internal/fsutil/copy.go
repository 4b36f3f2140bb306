package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicCopy copies src into dstDir under the same base name. The data is
// written to a temporary file in dstDir and renamed into place, so readers
// never observe a partially written file. It returns the destination path.
func AtomicCopy(src, dstDir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(src)
	tmp, err := os.CreateTemp(dstDir, "."+base+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		cleanup()
		return "", err
	}

	dst := filepath.Join(dstDir, base)
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return "", err
	}
	return dst, nil
}
