// internal/output/formatter.go
package output

import (
	"fmt"

	"github.com/julianshen/docgen/internal/docgen"
)

// RunReport holds what the CLI reports about one documentation run.
type RunReport struct {
	*docgen.Result
	Source     string `json:"source"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Formatter formats a RunReport into output bytes.
type Formatter interface {
	Format(report *RunReport) ([]byte, error)
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "json":
		return NewJSONFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", name)
	}
}
