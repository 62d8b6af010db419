package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnsureDir creates path and every missing ancestor. A directory that already
// exists, including one created concurrently by another process, is not an
// error; permission and other failures surface.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("ensure dir: empty path")
	}
	err := os.MkdirAll(path, 0o755)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	// MkdirAll can lose a creation race and misreport; trust a fresh stat.
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		return nil
	}
	return err
}

// PartialSuffix marks in-flight copy temp files so cleanup tooling can
// recognize and collect them.
const PartialSuffix = ".partial."

// IsPartial reports whether name looks like an in-flight or abandoned copy
// temp file.
func IsPartial(name string) bool {
	return strings.Contains(filepath.Base(name), PartialSuffix)
}

func partialName(dst string) string {
	return fmt.Sprintf("%s%s%.8s", dst, PartialSuffix, uuid.NewString())
}

// CopyFile streams src to a unique temp file next to dst, syncs it, and
// renames it into place. Readers never observe a partially written dst.
func CopyFile(src, dst string, mode os.FileMode) error {
	return copyAtomic(src, dst, mode, false)
}

// CopyFileVerified behaves like CopyFile with SHA256 + size integrity
// verification before the rename. The temp file is removed on mismatch.
func CopyFileVerified(src, dst string, mode os.FileMode) error {
	return copyAtomic(src, dst, mode, true)
}

func copyAtomic(src, dst string, mode os.FileMode, verify bool) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := partialName(dst)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		_ = os.Remove(tmp)
	}()

	var written int64
	if verify {
		srcHasher := sha256.New()
		dstHasher := sha256.New()
		tee := io.TeeReader(in, srcHasher)
		multi := io.MultiWriter(out, dstHasher)
		if written, err = io.Copy(multi, tee); err != nil {
			return err
		}
		if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch: file corrupted during copy")
		}
	} else {
		if written, err = io.Copy(out, in); err != nil {
			return err
		}
	}

	if written != srcSize {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
