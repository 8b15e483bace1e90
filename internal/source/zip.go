// Package source turns an input descriptor (zip payload, remote repository
// or local directory) into a local working folder.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrUnsafePath is returned for archive entries that would escape the
// extraction root.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ErrArchiveTooLarge is returned when the uncompressed archive exceeds the
// configured limit.
var ErrArchiveTooLarge = errors.New("uncompressed archive exceeds size limit")

const macOSMeta = "__MACOSX"

// ExtractZip unpacks data into dest and returns the project root: the single
// top-level directory when the archive wraps everything in one, otherwise
// dest itself. Entries under __MACOSX are skipped. A non-positive maxBytes
// disables the uncompressed size check.
func ExtractZip(data []byte, dest string, maxBytes int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}

	var total int64
	for _, f := range zr.File {
		name := path.Clean(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." || strings.HasPrefix(name, macOSMeta+"/") || name == macOSMeta {
			continue
		}
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return "", fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("create %s: %w", name, err)
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue // symlinks and devices are not followed
		}

		n, err := extractFile(f, target, remaining(maxBytes, total))
		total += n
		if err != nil {
			return "", err
		}
	}

	return projectRoot(dest)
}

func remaining(maxBytes, used int64) int64 {
	if maxBytes <= 0 {
		return -1
	}
	return maxBytes - used
}

func extractFile(f *zip.File, target string, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create dir for %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", f.Name, err)
	}
	defer out.Close()

	var src io.Reader = rc
	if limit >= 0 {
		src = io.LimitReader(rc, limit+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return n, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if limit >= 0 && n > limit {
		return n, ErrArchiveTooLarge
	}
	return n, nil
}

// projectRoot returns the only subdirectory of dir when dir holds nothing
// else, which is how forge archives ("repo-main/...") are laid out.
func projectRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	var only string
	for _, e := range entries {
		if e.Name() == macOSMeta {
			continue
		}
		if !e.IsDir() || only != "" {
			return dir, nil
		}
		only = e.Name()
	}
	if only == "" {
		return dir, nil
	}
	return filepath.Join(dir, only), nil
}
