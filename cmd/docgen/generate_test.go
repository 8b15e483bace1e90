package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/pipeline"
	"github.com/julianshen/docgen/internal/runner"
)

func fakeResult() *docgen.Result {
	return &docgen.Result{
		InputType:    "dir",
		README:       "# Demo",
		Summaries:    map[string]docgen.SummaryRecord{"main.py": {Path: "main.py", Summary: "Entry.", Language: "python"}},
		Annotated:    map[string]string{"main.py": "print(1)  # one"},
		Visuals:      map[string]string{docgen.VisualFolderStructure: "graph TD"},
		FolderTree:   []string{"main.py"},
		Stages:       pipeline.Trace{"fetch", "parse", "summarize_and_annotate", "compose_readme", "compose_diagram", "package"},
		ArchiveBytes: []byte("PK"),
	}
}

func fixedRun(res *docgen.Result, err error) runner.RunFunc {
	return func(context.Context, docgen.Request) (*docgen.Result, error) { return res, err }
}

func TestGenerateCmdDefaultFlags(t *testing.T) {
	cmd := generateCmd()
	assert.Equal(t, "generate [path|url|archive.zip|-]", cmd.Use)

	format, _ := cmd.Flags().GetString("format")
	assert.Equal(t, "raw-md", format)

	out, _ := cmd.Flags().GetString("output")
	assert.Equal(t, "docs/generated", out)

	report, _ := cmd.Flags().GetString("report")
	assert.Equal(t, "markdown", report)

	for _, name := range []string{"no-annotate", "no-summarize", "no-readme", "no-visualize", "interactive", "dedup-overlap", "strict"} {
		v, err := cmd.Flags().GetBool(name)
		require.NoError(t, err, name)
		assert.False(t, v, name)
	}
}

func TestGenerateOptionsPreferences(t *testing.T) {
	assert.Equal(t, pipeline.FullPreferences(), generateOptions{}.preferences())

	p := generateOptions{noAnnotate: true, noVisualize: true}.preferences()
	assert.Equal(t, pipeline.Preferences{Summarize: true, Readme: true}, p)
	assert.Equal(t, pipeline.ShapeSummarize, pipeline.ShapeOf(p))
}

func TestSelectionRoundTrip(t *testing.T) {
	for _, p := range []pipeline.Preferences{
		pipeline.FullPreferences(),
		pipeline.PreviewPreferences(),
		{Annotate: true},
		{},
	} {
		assert.Equal(t, p, preferencesFromSelection(selectionFor(p)))
	}
	assert.Equal(t, []string{optSummarize, optReadme, optVisualize}, selectionFor(pipeline.PreviewPreferences()))
}

func TestExecuteGenerateWritesSite(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "out.zip")
	opts := generateOptions{outputDir: filepath.Join(dir, "site"), format: "raw-md", report: "json", bundle: bundle}

	var out, errOut bytes.Buffer
	err := executeGenerate(context.Background(), &out, &errOut, "./demo", docgen.Request{}, opts, fixedRun(fakeResult(), nil))
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &parsed))
	assert.Equal(t, "./demo", parsed["source"])
	assert.Equal(t, "# Demo", parsed["readme"])

	assert.FileExists(t, filepath.Join(dir, "site", "README.md"))
	assert.FileExists(t, filepath.Join(dir, "site", "annotated", "main.py"))
	data, err := os.ReadFile(bundle)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data)
	assert.Contains(t, errOut.String(), "Done")
}

func TestExecuteGenerateConfigError(t *testing.T) {
	runErr := &pipeline.StepError{Node: "fetch", Err: &docgen.ConfigError{Field: "input", Reason: "missing"}}
	opts := generateOptions{report: "markdown"}

	var out, errOut bytes.Buffer
	err := executeGenerate(context.Background(), &out, &errOut, "./missing", docgen.Request{}, opts, fixedRun(nil, runErr))

	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, runner.ExitConfig, exitErr.Code)
	assert.Contains(t, out.String(), "## Error")
	assert.Contains(t, errOut.String(), "invalid input: missing")
}

func TestExecuteGenerateStrict(t *testing.T) {
	res := fakeResult()
	res.Failures = []pipeline.UnitResult{{Stage: "annotate", Unit: "main.py", Err: errors.New("timeout")}}

	var out, errOut bytes.Buffer
	err := executeGenerate(context.Background(), &out, &errOut, ".", docgen.Request{}, generateOptions{report: "markdown"}, fixedRun(res, nil))
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "1 unit(s) failed")

	err = executeGenerate(context.Background(), &out, &errOut, ".", docgen.Request{}, generateOptions{report: "markdown", strict: true}, fixedRun(res, nil))
	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, runner.ExitPartial, exitErr.Code)
}

func TestExecuteGenerateUnknownReport(t *testing.T) {
	var out, errOut bytes.Buffer
	err := executeGenerate(context.Background(), &out, &errOut, ".", docgen.Request{}, generateOptions{report: "xml"}, fixedRun(fakeResult(), nil))
	assert.ErrorContains(t, err, "unsupported report format")
}

func TestExecutePreviewRaw(t *testing.T) {
	res := fakeResult()
	res.Failures = []pipeline.UnitResult{{Stage: "compose_diagram", Unit: "diagram", Err: errors.New("bad")}}

	var got docgen.Request
	run := func(_ context.Context, req docgen.Request) (*docgen.Result, error) {
		got = req
		return res, nil
	}

	var out, errOut bytes.Buffer
	req := docgen.Request{Preferences: pipeline.PreviewPreferences()}
	require.NoError(t, executePreview(context.Background(), &out, &errOut, req, 0, run))

	assert.False(t, got.Preferences.Annotate)
	assert.Equal(t, "# Demo\n\n## Folder Structure\n\n```mermaid\ngraph TD\n```\n\n", out.String())
	assert.Contains(t, errOut.String(), "compose_diagram diagram: bad")
}

func TestExecutePreviewRendered(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, executePreview(context.Background(), &out, &errOut, docgen.Request{}, 80, fixedRun(fakeResult(), nil)))
	assert.Contains(t, out.String(), "Demo")
}

func TestPreviewMarkdownWithoutReadme(t *testing.T) {
	assert.Equal(t, "_No README was generated._", previewMarkdown(&docgen.Result{}))
}
