// Package archive packages generated documentation into zip files and keeps
// them in an expiring in-memory store until they are downloaded.
package archive

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ReadmeName is the archive-root name of the generated README.
const ReadmeName = "README.md"

// entryTime stamps every entry so identical input yields identical bytes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Build writes files (relative slash paths to contents) and, when readme is
// non-empty, README.md at the root into a deflated zip. A non-empty readme
// replaces any README.md in files. Entries are written in path order with a
// fixed timestamp so the output is reproducible.
func Build(files map[string]string, readme string) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, body string) error {
		clean := cleanName(name)
		if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("invalid archive path %q", name)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     clean,
			Method:   zip.Deflate,
			Modified: entryTime,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", clean, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			return fmt.Errorf("write %s: %w", clean, err)
		}
		return nil
	}

	for _, name := range names {
		if readme != "" && cleanName(name) == ReadmeName {
			continue
		}
		if err := write(name, files[name]); err != nil {
			return nil, err
		}
	}
	if readme != "" {
		if err := write(ReadmeName, readme); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func cleanName(name string) string {
	return path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
}
