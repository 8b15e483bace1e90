// internal/runner/input.go
package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianshen/docgen/internal/docgen"
)

// StdinTarget names standard input as the archive source.
const StdinTarget = "-"

// ResolveInput determines the run input from the available sources.
// Priority: zipPath > target. A target of "-" reads an archive from
// stdinReader, a URL selects a repository and anything else a directory
// (or a .zip file).
func ResolveInput(target, branch, zipPath string, stdinReader io.Reader) (docgen.Input, error) {
	if zipPath != "" {
		return readArchive(zipPath)
	}

	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return docgen.Input{}, fmt.Errorf("no input provided: pass a directory, repository URL or archive, or use --zip")
	case target == StdinTarget:
		if stdinReader == nil {
			return docgen.Input{}, fmt.Errorf("no archive on stdin")
		}
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			return docgen.Input{}, fmt.Errorf("reading stdin: %w", err)
		}
		return docgen.Input{Kind: docgen.KindArchive, Archive: data}, nil
	case IsRepoURL(target):
		return docgen.Input{Kind: docgen.KindRepo, RepoURL: target, Branch: branch}, nil
	case strings.EqualFold(filepath.Ext(target), ".zip"):
		return readArchive(target)
	default:
		return docgen.Input{Kind: docgen.KindDir, Dir: target}, nil
	}
}

// IsRepoURL reports whether target looks like a remote repository.
func IsRepoURL(target string) bool {
	for _, prefix := range []string{"https://", "http://", "git@"} {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

func readArchive(path string) (docgen.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return docgen.Input{}, fmt.Errorf("reading archive: %w", err)
	}
	if len(data) == 0 {
		return docgen.Input{}, fmt.Errorf("archive is empty: %s", path)
	}
	return docgen.Input{Kind: docgen.KindArchive, Archive: data}, nil
}
