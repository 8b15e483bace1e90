package docgen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/julianshen/docgen/internal/archive"
	"github.com/julianshen/docgen/internal/chunker"
	"github.com/julianshen/docgen/internal/config"
	"github.com/julianshen/docgen/internal/llm"
	"github.com/julianshen/docgen/internal/parser"
	"github.com/julianshen/docgen/internal/prompt"
	"github.com/julianshen/docgen/internal/source"
)

// Stage names, used as graph nodes and report stages.
const (
	StageFetch     = "fetch"
	StageParse     = "parse"
	StageSummarize = "summarize"
	StageAnnotate  = "annotate"
	StageCombined  = "summarize_and_annotate"
	StageReadme    = "compose_readme"
	StageDiagram   = "compose_diagram"
	StagePackage   = "package"
)

// noSummary stands in when a model reply carries no summary marker.
const noSummary = "No summary available."

// ModelCaller sends one prompt to the completion model.
type ModelCaller interface {
	Call(ctx context.Context, req llm.Request) (string, error)
}

// Downloader fetches a remote repository into dest and returns the project
// root inside it.
type Downloader interface {
	Download(ctx context.Context, repoURL, branch, dest string) (string, error)
}

// Stages holds the collaborators shared by every stage. A Stages value is
// safe for concurrent runs as long as its collaborators are.
type Stages struct {
	Caller ModelCaller
	Source Downloader
	Store  *archive.Store

	Chunk           chunker.Config
	GroupChars      int
	DiagramFallback bool
	MaxArchiveBytes int64
	WorkDir         string // parent of temporary directories; empty uses os.TempDir

	Logger *slog.Logger
}

func (s *Stages) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Fetch resolves the input descriptor into a local project root.
func (s *Stages) Fetch(ctx context.Context, st *State) error {
	in := st.Input
	switch in.Kind {
	case KindDir:
		info, err := os.Stat(in.Dir)
		if err != nil || !info.IsDir() {
			return &ConfigError{Field: "input directory", Reason: fmt.Sprintf("%q is not a directory", in.Dir)}
		}
		st.Workdirs[RepoWorkdir] = in.Dir
		return nil

	case KindArchive:
		if len(in.Archive) == 0 {
			return &ConfigError{Field: "input archive", Reason: "empty payload"}
		}
		dest, err := s.tempDir(st)
		if err != nil {
			return err
		}
		root, err := source.ExtractZip(in.Archive, dest, s.MaxArchiveBytes)
		if err != nil {
			return fmt.Errorf("extract archive: %w", err)
		}
		st.Workdirs[RepoWorkdir] = root
		s.logger().Info("archive extracted", "root", root)
		return nil

	case KindRepo:
		if strings.TrimSpace(in.RepoURL) == "" {
			return &ConfigError{Field: "repository url", Reason: "empty"}
		}
		if s.Source == nil {
			return errors.New("no repository downloader configured")
		}
		dest, err := s.tempDir(st)
		if err != nil {
			return err
		}
		root, err := s.Source.Download(ctx, in.RepoURL, in.Branch, dest)
		if err != nil {
			if errors.Is(err, source.ErrInvalidRepoURL) {
				return &ConfigError{Field: "repository url", Reason: err.Error()}
			}
			return err
		}
		st.Workdirs[RepoWorkdir] = root
		return nil

	default:
		return &ConfigError{Field: "input kind", Reason: fmt.Sprintf("unrecognized %q", in.Kind)}
	}
}

func (s *Stages) tempDir(st *State) (string, error) {
	dir, err := os.MkdirTemp(s.WorkDir, "docgen-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	st.tempDirs = append(st.tempDirs, dir)
	return dir, nil
}

// Parse walks every working folder and records the source files it finds.
// Denylisted folders, denylisted files, virtual environments and files of
// unregistered languages are skipped.
func (s *Stages) Parse(ctx context.Context, st *State) error {
	p := parser.NewParser()
	log := s.logger()

	names := make([]string, 0, len(st.Workdirs))
	for name := range st.Workdirs {
		names = append(names, name)
	}
	sort.Strings(names)

	var tree []string
	for _, name := range names {
		root := st.Workdirs[name]
		prefix := ""
		if len(names) > 1 {
			prefix = name + "/"
		}

		err := filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("skipping unreadable path", "path", abs, "error", err)
				return nil
			}
			if d.IsDir() {
				if abs != root && (isExcludedFolder(d.Name()) || isVirtualEnv(abs)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := toSlashRel(root, abs)
			if err != nil {
				return err
			}
			tree = append(tree, prefix+rel)
			if isExcludedFile(rel) {
				return nil
			}
			lang, ok := parser.Detect(rel)
			if !ok {
				return nil
			}
			rec, ok := s.readSource(abs, prefix+rel, lang)
			if ok {
				st.Files = append(st.Files, rec)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", name, err)
		}
	}

	for i := range st.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := &st.Files[i]
		syms, err := p.Symbols(ctx, f.Path, []byte(f.Code))
		if err != nil {
			log.Warn("symbol extraction failed", "file", f.Path, "error", err)
			st.Report.Fail(StageParse, f.Path, err)
			continue
		}
		f.Symbols = syms
		st.Report.Succeed(StageParse, f.Path)
	}

	sort.Strings(tree)
	st.FolderTree = tree
	log.Info("parsed project", "files", len(st.Files), "entries", len(tree))
	return nil
}

func (s *Stages) readSource(abs, rel, lang string) (FileRecord, bool) {
	data, err := os.ReadFile(abs)
	if err != nil {
		s.logger().Warn("skipping unreadable file", "file", rel, "error", err)
		return FileRecord{}, false
	}
	if !utf8.Valid(data) {
		s.logger().Debug("skipping non UTF-8 file", "file", rel)
		return FileRecord{}, false
	}
	return FileRecord{Path: rel, Code: string(data), Language: lang}, true
}

// chunks splits code for prompting. A file that fits in one chunk is sent
// whole; blank code yields no chunks.
func (s *Stages) chunks(code string) []string {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	parts := chunker.Split(code, s.Chunk.Size, s.Chunk.Overlap)
	if len(parts) <= 1 {
		return []string{code}
	}
	return parts
}

func (s *Stages) call(ctx context.Context, task prompt.Task, in prompt.Input) (string, error) {
	text, err := prompt.Build(task, in)
	if err != nil {
		return "", err
	}
	return s.Caller.Call(ctx, llm.Request{
		Capability: prompt.CapabilityFor(task),
		Language:   in.Language,
		Prompt:     text,
	})
}

// eachChunk calls the model once per chunk of f and returns the replies in
// order. It fails on the first failing chunk.
func (s *Stages) eachChunk(ctx context.Context, task prompt.Task, f FileRecord) ([]string, error) {
	parts := s.chunks(f.Code)
	entities := make([]prompt.Entity, 0, len(f.Symbols))
	for _, name := range f.Symbols {
		entities = append(entities, prompt.Entity{Name: name})
	}

	replies := make([]string, 0, len(parts))
	for i, code := range parts {
		in := prompt.Input{
			Path:     f.Path,
			Language: f.Language,
			Code:     code,
			Entities: entities,
		}
		if len(parts) > 1 {
			in.Part, in.Parts = i+1, len(parts)
		}
		out, err := s.call(ctx, task, in)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(parts), err)
		}
		replies = append(replies, out)
	}
	return replies, nil
}

// forEachFile runs fn for every parsed file. Blank files are recorded as
// skipped without calling fn. A failing file is recorded in the report and
// skipped; only context cancellation stops the loop.
func (s *Stages) forEachFile(ctx context.Context, st *State, stage string, fn func(FileRecord) error) error {
	for _, f := range st.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(f.Code) == "" {
			s.logger().Debug("skipping blank file", "stage", stage, "file", f.Path)
			st.Report.Skip(stage, f.Path)
			continue
		}
		if err := fn(f); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger().Warn("unit failed", "stage", stage, "file", f.Path, "error", err)
			st.Report.Fail(stage, f.Path, err)
			continue
		}
		st.Report.Succeed(stage, f.Path)
	}
	return nil
}

// Summarize generates a technical summary per file.
func (s *Stages) Summarize(ctx context.Context, st *State) error {
	return s.forEachFile(ctx, st, StageSummarize, func(f FileRecord) error {
		replies, err := s.eachChunk(ctx, prompt.TaskSummarize, f)
		if err != nil {
			return err
		}
		for i, r := range replies {
			replies[i] = prompt.Clean(r)
		}
		st.Summaries[f.Path] = SummaryRecord{
			Path:     f.Path,
			Summary:  strings.Join(replies, " "),
			Language: f.Language,
			Symbols:  f.Symbols,
		}
		return nil
	})
}

// Annotate asks the model to document each file in place.
func (s *Stages) Annotate(ctx context.Context, st *State) error {
	return s.forEachFile(ctx, st, StageAnnotate, func(f FileRecord) error {
		replies, err := s.eachChunk(ctx, prompt.TaskAnnotate, f)
		if err != nil {
			return err
		}
		for i, r := range replies {
			replies[i] = prompt.Clean(r)
		}
		st.Annotated[f.Path] = chunker.Join(replies, s.Chunk.Overlap, s.Chunk.Dedup)
		return nil
	})
}

// Combined annotates and summarizes each file with a single prompt per
// chunk, splitting the reply on the summary marker.
func (s *Stages) Combined(ctx context.Context, st *State) error {
	return s.forEachFile(ctx, st, StageCombined, func(f FileRecord) error {
		replies, err := s.eachChunk(ctx, prompt.TaskCombined, f)
		if err != nil {
			return err
		}
		codes := make([]string, 0, len(replies))
		var summaries []string
		for _, r := range replies {
			code, summary, ok := prompt.SplitSummary(prompt.Clean(r))
			codes = append(codes, code)
			if ok && summary != "" {
				summaries = append(summaries, summary)
			}
		}
		summary := strings.Join(summaries, " ")
		if summary == "" {
			summary = noSummary
		}
		st.Annotated[f.Path] = chunker.Join(codes, s.Chunk.Overlap, s.Chunk.Dedup)
		st.Summaries[f.Path] = SummaryRecord{
			Path:     f.Path,
			Summary:  summary,
			Language: f.Language,
			Symbols:  f.Symbols,
		}
		return nil
	})
}

// ComposeReadme writes the README from the accumulated summaries. Summaries
// are condensed group by group before the final document prompt. Any model
// failure leaves the README empty.
func (s *Stages) ComposeReadme(ctx context.Context, st *State) error {
	st.README = ""
	if !st.Preferences.Readme {
		return nil
	}

	readme, err := s.composeReadme(ctx, st)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger().Warn("readme composition failed", "error", err)
		st.Report.Fail(StageReadme, archive.ReadmeName, err)
		return nil
	}
	st.README = readme
	st.Report.Succeed(StageReadme, archive.ReadmeName)
	return nil
}

func (s *Stages) composeReadme(ctx context.Context, st *State) (string, error) {
	paths := make([]string, 0, len(st.Summaries))
	for p := range st.Summaries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := make([]string, 0, len(paths))
	for _, p := range paths {
		rec := st.Summaries[p]
		entries = append(entries, prompt.FormatSummary(rec.Path, rec.Language, rec.Summary, rec.Symbols))
	}

	var sections []string
	for i, group := range chunker.Group(entries, s.GroupChars) {
		out, err := s.call(ctx, prompt.TaskReadmeSection, prompt.Input{
			Summaries: strings.Join(group, "\n\n"),
		})
		if err != nil {
			return "", fmt.Errorf("summary group %d: %w", i+1, err)
		}
		sections = append(sections, prompt.Clean(out))
	}

	out, err := s.call(ctx, prompt.TaskReadme, prompt.Input{
		Summaries:  strings.Join(sections, "\n\n"),
		FolderTree: st.FolderTree,
	})
	if err != nil {
		return "", fmt.Errorf("final document: %w", err)
	}
	return strings.ReplaceAll(prompt.Clean(out), `\n`, "\n"), nil
}

// ComposeDiagram renders the project layout as a mermaid graph. When the
// model call fails the deterministic fallback is used if enabled.
func (s *Stages) ComposeDiagram(ctx context.Context, st *State) error {
	st.Diagram = ""
	if !st.Preferences.Visualize {
		return nil
	}
	paths := DiagramPaths(st.FolderTree)
	if len(paths) == 0 {
		return nil
	}

	out, err := s.call(ctx, prompt.TaskDiagram, prompt.Input{Paths: paths})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger().Warn("diagram composition failed", "error", err, "fallback", s.DiagramFallback)
		st.Report.Fail(StageDiagram, "diagram", err)
		if s.DiagramFallback {
			st.Diagram = FallbackDiagram(paths)
		}
		return nil
	}
	st.Diagram = prompt.Clean(out)
	st.Report.Succeed(StageDiagram, "diagram")
	return nil
}

// Package zips the annotated files and README. On the download path the
// archive goes into the store and only its token is kept.
func (s *Stages) Package(_ context.Context, st *State) error {
	data, err := archive.Build(st.Annotated, st.README)
	if err != nil {
		return fmt.Errorf("build archive: %w", err)
	}
	if !st.Download {
		st.ArchiveBytes = data
		return nil
	}
	if s.Store == nil {
		return errors.New("no archive store configured")
	}
	st.Token = s.Store.Put(data)
	s.logger().Info("archive stored", "token", st.Token, "bytes", len(data))
	return nil
}

// NewStages builds Stages from configuration and the given collaborators.
func NewStages(cfg *config.Config, caller ModelCaller, src Downloader, store *archive.Store, logger *slog.Logger) *Stages {
	return &Stages{
		Caller: caller,
		Source: src,
		Store:  store,
		Chunk: chunker.Config{
			Size:    cfg.Chunk.Size,
			Overlap: cfg.Chunk.Overlap,
			Dedup:   cfg.Chunk.DedupOverlap,
		},
		GroupChars:      cfg.Readme.GroupChars,
		DiagramFallback: cfg.Readme.DiagramFallback,
		MaxArchiveBytes: cfg.Fetch.MaxArchiveBytes,
		WorkDir:         cfg.Fetch.WorkDir,
		Logger:          logger,
	}
}
