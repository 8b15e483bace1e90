package docgen

import (
	"context"

	"github.com/julianshen/docgen/internal/pipeline"
)

// VisualFolderStructure is the Visuals key of the folder diagram.
const VisualFolderStructure = "folder_structure_mermaid"

// Request describes one documentation run.
type Request struct {
	Input       Input
	Preferences pipeline.Preferences

	// Download stores the archive and returns a token instead of bytes.
	Download bool
}

// Result is the outcome of a run, shaped for JSON responses.
type Result struct {
	InputType   string                   `json:"input_type"`
	README      string                   `json:"readme"`
	Summaries   map[string]SummaryRecord `json:"summaries"`
	Annotated   map[string]string        `json:"modified_files"`
	Visuals     map[string]string        `json:"visuals"`
	FolderTree  []string                 `json:"folder_tree"`
	DownloadURL string                   `json:"download_url,omitempty"`
	Failures    []pipeline.UnitResult    `json:"failures,omitempty"`
	Stages      pipeline.Trace           `json:"stages"`

	Token        string `json:"-"`
	ArchiveBytes []byte `json:"-"`
}

// Diagram returns the folder diagram, or "" when none was generated.
func (r *Result) Diagram() string {
	return r.Visuals[VisualFolderStructure]
}

// Graph compiles the stage graph bound to s:
//
//	fetch -> parse -> {summarize | annotate | summarize_and_annotate | -}
//	      -> compose_readme -> compose_diagram -> package
func (s *Stages) Graph() (*pipeline.Compiled[*State], error) {
	return pipeline.New[*State]().
		AddNode(StageFetch, s.Fetch).
		AddNode(StageParse, s.Parse).
		AddNode(StageSummarize, s.Summarize).
		AddNode(StageAnnotate, s.Annotate).
		AddNode(StageCombined, s.Combined).
		AddNode(StageReadme, s.ComposeReadme).
		AddNode(StageDiagram, s.ComposeDiagram).
		AddNode(StagePackage, s.Package).
		AddEdge(StageFetch, StageParse).
		AddBranch(StageParse, selectShape, StageSummarize, StageAnnotate, StageCombined, StageReadme).
		AddEdge(StageSummarize, StageReadme).
		AddEdge(StageAnnotate, StageReadme).
		AddEdge(StageCombined, StageReadme).
		AddEdge(StageReadme, StageDiagram).
		AddEdge(StageDiagram, StagePackage).
		SetEntry(StageFetch).
		SetExit(StagePackage).
		Compile()
}

func selectShape(st *State) string {
	switch st.Shape {
	case pipeline.ShapeBoth:
		return StageCombined
	case pipeline.ShapeAnnotate:
		return StageAnnotate
	case pipeline.ShapeSummarize:
		return StageSummarize
	default:
		return StageReadme
	}
}

// Run executes one documentation run with s as collaborators. Only fatal
// errors are returned; per-file and composition failures are listed in
// Result.Failures.
func Run(ctx context.Context, s *Stages, req Request) (*Result, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}

	st := NewState(req.Input, req.Preferences)
	st.Download = req.Download
	defer st.Cleanup()

	log := s.logger().With("input", req.Input.Kind, "shape", st.Shape)
	log.Info("run started")

	trace, err := g.Run(ctx, st)
	if err != nil {
		log.Error("run failed", "stages", trace, "error", err)
		return nil, err
	}

	res := &Result{
		InputType:    string(req.Input.Kind),
		README:       st.README,
		Summaries:    st.Summaries,
		Annotated:    st.Annotated,
		Visuals:      map[string]string{},
		FolderTree:   st.FolderTree,
		Failures:     st.Report.Failures(),
		Stages:       trace,
		Token:        st.Token,
		ArchiveBytes: st.ArchiveBytes,
	}
	if st.Diagram != "" {
		res.Visuals[VisualFolderStructure] = st.Diagram
	}
	log.Info("run finished",
		"files", len(st.Files),
		"summaries", len(st.Summaries),
		"annotated", len(st.Annotated),
		"failures", len(res.Failures))
	return res, nil
}
