// internal/output/formatter_test.go
package output

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/pipeline"
)

func sampleResult() *docgen.Result {
	return &docgen.Result{
		InputType: "dir",
		README:    "# Demo\nA demo project.",
		Summaries: map[string]docgen.SummaryRecord{
			"utils.py": {Path: "utils.py", Summary: "Helpers.", Language: "python", Symbols: []string{"helper"}},
			"main.py":  {Path: "main.py", Summary: "Entry point.", Language: "python"},
		},
		Annotated: map[string]string{
			"main.py":     "print('hi')  # greet",
			"pkg/util.py": "x = 1  # one",
		},
		Visuals:    map[string]string{docgen.VisualFolderStructure: "graph TD\n  A-->B"},
		FolderTree: []string{"main.py", "pkg/util.py", "utils.py"},
		Failures: []pipeline.UnitResult{
			{Stage: "annotate", Unit: "big.py", Err: errors.New("model unavailable")},
		},
		Stages: pipeline.Trace{"fetch", "parse", "summarize", "compose_readme"},
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = NewFormatter("md")
	require.NoError(t, err)
	assert.IsType(t, &MarkdownFormatter{}, f)

	_, err = NewFormatter("xml")
	assert.ErrorContains(t, err, "unsupported report format: xml")
}
