// internal/output/markdown.go
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianshen/docgen/internal/prompt"
)

// MarkdownFormatter outputs RunReport as human-readable Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the RunReport as Markdown.
func (f *MarkdownFormatter) Format(report *RunReport) ([]byte, error) {
	var b strings.Builder

	if report.Error != "" || report.Result == nil {
		b.WriteString("## Error\n\n")
		b.WriteString(report.Error)
		b.WriteString("\n")
		return []byte(b.String()), nil
	}
	res := report.Result

	fmt.Fprintf(&b, "# Documentation run: %s\n\n", report.Source)
	fmt.Fprintf(&b, "- Input: %s\n", res.InputType)
	fmt.Fprintf(&b, "- Stages: %s\n", strings.Join(res.Stages, " → "))
	fmt.Fprintf(&b, "- Files summarized: %d\n", len(res.Summaries))
	fmt.Fprintf(&b, "- Files annotated: %d\n", len(res.Annotated))
	fmt.Fprintf(&b, "- README: %s\n", presence(res.README))
	fmt.Fprintf(&b, "- Diagram: %s\n", presence(res.Diagram()))

	if len(res.Summaries) > 0 {
		b.WriteString("\n## Summaries\n\n")
		paths := make([]string, 0, len(res.Summaries))
		for p := range res.Summaries {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			s := res.Summaries[p]
			b.WriteString(prompt.FormatSummary(s.Path, s.Language, s.Summary, s.Symbols))
			b.WriteString("\n\n")
		}
	}

	if len(res.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for i, u := range res.Failures {
			fmt.Fprintf(&b, "%d. **%s** `%s`: %v\n", i+1, u.Stage, u.Unit, u.Err)
		}
	}

	duration := time.Duration(report.DurationMs) * time.Millisecond
	stageLabel := "stages"
	if len(res.Stages) == 1 {
		stageLabel = "stage"
	}
	fmt.Fprintf(&b, "\n---\n*Completed %d %s in %s*\n",
		len(res.Stages), stageLabel, duration.Round(100*time.Millisecond))

	return []byte(b.String()), nil
}

func presence(s string) string {
	if s == "" {
		return "not generated"
	}
	return "generated"
}
