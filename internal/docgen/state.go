// Package docgen turns a codebase into generated documentation: per-file
// summaries, annotated sources, a README and a folder diagram. Each step is
// a stage over a shared State, driven by a pipeline graph whose shape is
// chosen from the caller's preferences.
package docgen

import (
	"fmt"
	"os"

	"github.com/julianshen/docgen/internal/pipeline"
)

// InputKind names the kind of codebase a run starts from.
type InputKind string

const (
	KindArchive InputKind = "zip"
	KindRepo    InputKind = "repo"
	KindDir     InputKind = "dir"
)

// RepoWorkdir is the Workdirs key holding the fetched project root.
const RepoWorkdir = "repo_path"

// Input describes where the codebase comes from. Only the fields relevant
// to Kind are read.
type Input struct {
	Kind    InputKind
	Archive []byte // zip payload for KindArchive
	RepoURL string // repository URL for KindRepo
	Branch  string // empty resolves to the default branch
	Dir     string // local directory for KindDir
}

// FileRecord is one parsed source file.
type FileRecord struct {
	Path     string // slash-separated, relative to the project root
	Code     string
	Language string
	Symbols  []string
}

// SummaryRecord is the generated summary of one file.
type SummaryRecord struct {
	Path     string   `json:"file"`
	Summary  string   `json:"summary"`
	Language string   `json:"type"`
	Symbols  []string `json:"contains"`
}

// State is threaded through every stage of a run. Stages only read fields
// produced by earlier stages and treat missing values as nothing to do.
type State struct {
	Input       Input
	Preferences pipeline.Preferences
	Shape       pipeline.Shape
	Download    bool

	Workdirs   map[string]string
	Files      []FileRecord
	FolderTree []string
	Summaries  map[string]SummaryRecord
	Annotated  map[string]string
	README     string
	Diagram    string

	ArchiveBytes []byte
	Token        string

	Report *pipeline.Report

	tempDirs []string
}

// NewState returns an empty state for one run.
func NewState(in Input, prefs pipeline.Preferences) *State {
	return &State{
		Input:       in,
		Preferences: prefs,
		Shape:       pipeline.ShapeOf(prefs),
		Workdirs:    make(map[string]string),
		Summaries:   make(map[string]SummaryRecord),
		Annotated:   make(map[string]string),
		Report:      pipeline.NewReport(),
	}
}

// Cleanup removes the temporary directories created while fetching.
func (s *State) Cleanup() {
	for _, dir := range s.tempDirs {
		os.RemoveAll(dir)
	}
	s.tempDirs = nil
}

// ConfigError reports an input descriptor the run cannot act on. It aborts
// the run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
