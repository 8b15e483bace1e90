package docgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/julianshen/docgen/internal/chunker"
	"github.com/julianshen/docgen/internal/llm"
	"github.com/julianshen/docgen/internal/prompt"
	"github.com/stretchr/testify/require"
)

const (
	mainPy  = "def main():\n    print(\"hi\")\n"
	utilsPy = "class Helper:\n    pass\n"
)

// fakeModel answers each prompt kind with a canned reply and counts calls.
type fakeModel struct {
	mu      sync.Mutex
	calls   map[prompt.Task]int
	prompts []string

	// fail returns a non-nil error to make a matching call fail.
	fail func(task prompt.Task, text string) error
}

func newFakeModel() *fakeModel {
	return &fakeModel{calls: make(map[prompt.Task]int)}
}

func taskOf(req llm.Request) prompt.Task {
	p := req.Prompt
	switch {
	case strings.Contains(p, "### Paths:"):
		return prompt.TaskDiagram
	case strings.Contains(p, "Generate only a **Code Summary** section"):
		return prompt.TaskReadmeSection
	case strings.Contains(p, "### Folder Structure:"):
		return prompt.TaskReadme
	case strings.Contains(p, "include exactly one final line"):
		return prompt.TaskCombined
	case strings.Contains(p, "Summarize the following"):
		return prompt.TaskSummarize
	default:
		return prompt.TaskAnnotate
	}
}

func codeOf(text string) string {
	_, code, _ := strings.Cut(text, "### Code:\n")
	return strings.TrimSuffix(code, "\n")
}

func (m *fakeModel) Complete(_ context.Context, req llm.Request) (string, error) {
	task := taskOf(req)

	m.mu.Lock()
	m.calls[task]++
	m.prompts = append(m.prompts, req.Prompt)
	fail := m.fail
	m.mu.Unlock()

	if fail != nil {
		if err := fail(task, req.Prompt); err != nil {
			return "", err
		}
	}

	switch task {
	case prompt.TaskDiagram:
		return "```mermaid\ngraph TD\n  A-->B\n```", nil
	case prompt.TaskReadmeSection:
		return "## Code Summary\n- files", nil
	case prompt.TaskReadme:
		return "<think>plan the sections</think>\n```markdown\n# Demo\\nA demo project.\n```", nil
	case prompt.TaskCombined:
		return codeOf(req.Prompt) + "\n" + prompt.SummaryMarker + " does things", nil
	case prompt.TaskSummarize:
		return "A short summary.", nil
	default:
		return codeOf(req.Prompt), nil
	}
}

func (m *fakeModel) count(task prompt.Task) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[task]
}

func (m *fakeModel) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// failOn fails every call of task whose prompt mentions needle.
func failOn(task prompt.Task, needle string) func(prompt.Task, string) error {
	return func(t prompt.Task, text string) error {
		if t == task && strings.Contains(text, needle) {
			return errors.New("model unavailable")
		}
		return nil
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStages(m *fakeModel) *Stages {
	return &Stages{
		Caller:          llm.NewCaller(m, llm.Policy{MaxAttempts: 1}, discardLogger()),
		Chunk:           chunker.DefaultConfig(),
		GroupChars:      chunker.DefaultGroupChars,
		DiagramFallback: true,
		Logger:          discardLogger(),
	}
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func twoFileProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":             mainPy,
		"utils.py":            utilsPy,
		"README.md":           "# old\n",
		"notes.txt":           "todo\n",
		"node_modules/dep.js": "module.exports = 1\n",
	})
	return dir
}

// callerFunc adapts a function to ModelCaller, bypassing retries.
type callerFunc func(ctx context.Context, text string) (string, error)

func (f callerFunc) Call(ctx context.Context, req llm.Request) (string, error) {
	return f(ctx, req.Prompt)
}
