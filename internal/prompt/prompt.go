// Package prompt renders the instructions sent to the completion model for
// each documentation task and post-processes the text that comes back.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Task identifies what a prompt asks the model to produce.
type Task string

const (
	TaskAnnotate      Task = "annotate"
	TaskSummarize     Task = "summarize"
	TaskCombined      Task = "combined"
	TaskReadmeSection Task = "readme_section"
	TaskReadme        Task = "readme"
	TaskDiagram       Task = "diagram"
)

// SummaryMarker prefixes the summary line appended to combined output.
const SummaryMarker = "### Summary:"

// Entity is a named piece of code, such as a function or class body.
type Entity struct {
	Name string
	Code string
}

// Input carries everything a template may reference. Fields irrelevant to
// the selected task are ignored.
type Input struct {
	Path       string
	Language   string
	Code       string
	Part       int // 1-based chunk index, 0 when the file is sent whole
	Parts      int
	Entities   []Entity
	Summaries  string
	FolderTree []string
	Paths      []string
}

var annotateTmpl = template.Must(template.New("annotate").Parse(
	`You are a highly skilled, professional {{.Language}} developer.

Your task: add clear, concise, professional docstrings or inline comments to the following code wherever they are needed to clarify purpose and behavior.

Very important instructions:
- Return ONLY the fully modified {{.Language}} code.
- Do NOT include any explanations, reasoning steps, or additional text.
- Do NOT include markdown formatting or code fences.
- Do NOT change or reformat existing code logic in any way. Only add docstrings or comments.
{{- if .Part}}
- This is part {{.Part}} of {{.Parts}} of the file {{.Path}}; return only this part.
{{- end}}

Start your output directly with the modified code.

### Code:
{{.Code}}
`))

var summarizeTmpl = template.Must(template.New("summarize").Parse(
	`Summarize the following {{.Language}} source file "{{.Path}}"{{if .Part}} (part {{.Part}} of {{.Parts}}){{end}}.
{{- if .Entities}}

It defines:
{{- range .Entities}}
- {{.Name}}
{{- end}}
{{- end}}

Provide a 2-4 sentence technical summary of its purpose and responsibilities.
Output plain text only: no markdown, no code fences, no preamble.

### Code:
{{.Code}}
`))

var combinedTmpl = template.Must(template.New("combined").Parse(
	`You are a professional {{.Language}} developer and technical writer.

For the code below:
1. Add concise, professional documentation comments wherever they are needed.
2. Provide a 1-2 line technical summary of its purpose.

Return ONLY the modified {{.Language}} code with the added documentation.
After the code, include exactly one final line: {{.Marker}} <summary>

Do not include explanations, markdown, or code fences.
Do not change or reformat existing code logic in any way.
{{- if .Part}}
This is part {{.Part}} of {{.Parts}} of the file {{.Path}}; return only this part.
{{- end}}

### Code:
{{.Code}}
`))

var readmeSectionTmpl = template.Must(template.New("readme_section").Parse(
	`You are an expert technical writer.

Generate only a **Code Summary** section in markdown based on these summaries. Do not include any other sections, no title, no folder structure. Only return the "Code Summary" section. Do not wrap the output in code fences.

---
{{.Summaries}}
---
`))

var readmeTmpl = template.Must(template.New("readme").Parse(
	`You are an expert technical writer. Generate a comprehensive, professional README.md in raw Markdown format for the codebase described below.

Instructions:
- Only use information from the summaries and folder structure provided.
- Create a meaningful project title based on the actual code content and purpose.
- Start with an H1 title followed immediately by a short description paragraph.
- Then include, when applicable: Features, Tech Stack, Folder Structure (once, complete), Code Summary, Installation, Usage, API Reference.
- Omit any section that does not apply; never write "not applicable".
- Do NOT wrap the response in code fences and do NOT add meta-commentary about documentation generation.

---
### Folder Structure:
{{range .FolderTree}}{{.}}
{{else}}Not available
{{end -}}
---
### Code Summaries:
{{.Summaries}}
---
`))

var diagramTmpl = template.Must(template.New("diagram").Parse(
	`Render the folder structure below as a mermaid flowchart.

Rules:
- Start with the line: graph TD
- Use exactly the paths listed below as nodes; do not invent, rename, or omit any node.
- Connect every path to its parent folder; paths ending in "/" are folders.
- Quote node labels so special characters are preserved.
- Output only the mermaid source: no code fences, no explanations.

### Paths:
{{range .Paths}}{{.}}
{{end}}`))

var templates = map[Task]*template.Template{
	TaskAnnotate:      annotateTmpl,
	TaskSummarize:     summarizeTmpl,
	TaskCombined:      combinedTmpl,
	TaskReadmeSection: readmeSectionTmpl,
	TaskReadme:        readmeTmpl,
	TaskDiagram:       diagramTmpl,
}

// Build renders the prompt for task. The same task and input always produce
// the same string.
func Build(task Task, in Input) (string, error) {
	tmpl, ok := templates[task]
	if !ok {
		return "", fmt.Errorf("unknown prompt task %q", task)
	}
	if in.Language == "" {
		in.Language = "source"
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Input
		Marker string
	}{Input: in, Marker: SummaryMarker})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", task, err)
	}
	return buf.String(), nil
}

// FormatSummary renders one summary entry for README composition.
func FormatSummary(path, language, summary string, symbols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#### `%s` (%s)\n", path, language)
	fmt.Fprintf(&b, "- Summary: %s", summary)
	if len(symbols) > 0 {
		fmt.Fprintf(&b, "\n- Contains: %s", strings.Join(symbols, ", "))
	}
	return b.String()
}
