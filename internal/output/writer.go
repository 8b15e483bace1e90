// internal/output/writer.go
package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/prompt"
)

// Supported site formats.
const (
	FormatRawMarkdown = "raw-md"
	FormatHugo        = "hugo"
	FormatDocusaurus  = "docusaurus"
)

// annotatedDir holds annotated sources beside the generated pages.
const annotatedDir = "annotated"

// WriterConfig controls how a run is written to disk.
type WriterConfig struct {
	Format    string // "raw-md", "hugo", or "docusaurus"
	OutputDir string // root output directory
	Title     string // site title for hugo and docusaurus
}

// DefaultWriterConfig returns a WriterConfig with sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Format:    FormatRawMarkdown,
		OutputDir: "docs/generated",
		Title:     "Project Documentation",
	}
}

// Document is one generated page.
type Document struct {
	Path    string
	Title   string
	Content string
}

// Documents returns the pages of res in site order. Empty sections are
// omitted.
func Documents(res *docgen.Result) []Document {
	var docs []Document
	if res.README != "" {
		docs = append(docs, Document{Path: "README.md", Title: "Overview", Content: res.README + "\n"})
	}
	if len(res.Summaries) > 0 {
		docs = append(docs, Document{Path: "SUMMARIES.md", Title: "File Summaries", Content: summariesPage(res)})
	}
	if len(res.FolderTree) > 0 || res.Diagram() != "" {
		docs = append(docs, Document{Path: "STRUCTURE.md", Title: "Project Structure", Content: structurePage(res)})
	}
	return docs
}

func summariesPage(res *docgen.Result) string {
	paths := make([]string, 0, len(res.Summaries))
	for p := range res.Summaries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString("# File Summaries\n")
	for _, p := range paths {
		s := res.Summaries[p]
		b.WriteString("\n")
		b.WriteString(prompt.FormatSummary(s.Path, s.Language, s.Summary, s.Symbols))
		b.WriteString("\n")
	}
	return b.String()
}

func structurePage(res *docgen.Result) string {
	var b strings.Builder
	b.WriteString("# Project Structure\n")
	if d := res.Diagram(); d != "" {
		b.WriteString("\n```mermaid\n")
		b.WriteString(d)
		b.WriteString("\n```\n")
	}
	if len(res.FolderTree) > 0 {
		b.WriteString("\n```\n")
		b.WriteString(strings.Join(res.FolderTree, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}

// Write renders res to disk in the configured format. Annotated sources
// are written verbatim under OutputDir/annotated in every format.
func Write(res *docgen.Result, cfg WriterConfig) error {
	if cfg.Title == "" {
		cfg.Title = DefaultWriterConfig().Title
	}
	docs := Documents(res)

	var err error
	switch cfg.Format {
	case FormatRawMarkdown:
		err = writeRawMarkdown(docs, cfg)
	case FormatHugo:
		err = writeHugo(docs, cfg)
	case FormatDocusaurus:
		err = writeDocusaurus(docs, cfg)
	default:
		return fmt.Errorf("unsupported site format: %s", cfg.Format)
	}
	if err != nil {
		return err
	}
	return writeAnnotated(res.Annotated, filepath.Join(cfg.OutputDir, annotatedDir))
}

func writeRawMarkdown(docs []Document, cfg WriterConfig) error {
	for _, doc := range docs {
		if err := writeDoc(filepath.Join(cfg.OutputDir, doc.Path), doc.Content); err != nil {
			return err
		}
	}
	return nil
}

type hugoFrontMatter struct {
	Title  string `yaml:"title"`
	Weight int    `yaml:"weight"`
}

type hugoConfig struct {
	BaseURL      string `toml:"baseURL"`
	LanguageCode string `toml:"languageCode"`
	Title        string `toml:"title"`
	Theme        string `toml:"theme"`
}

// writeHugo writes pages with YAML front matter under OutputDir/content/
// and a config.toml at OutputDir/config.toml.
func writeHugo(docs []Document, cfg WriterConfig) error {
	for i, doc := range docs {
		fm, err := frontMatter(hugoFrontMatter{Title: doc.Title, Weight: i + 1})
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.OutputDir, "content", hugoPath(doc.Path))
		if err := writeDoc(path, fm+doc.Content); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	site := hugoConfig{BaseURL: "/", LanguageCode: "en-us", Title: cfg.Title, Theme: "hugo-book"}
	if err := toml.NewEncoder(&buf).Encode(site); err != nil {
		return fmt.Errorf("encoding hugo config: %w", err)
	}
	return writeDoc(filepath.Join(cfg.OutputDir, "config.toml"), buf.String())
}

// hugoPath maps README.md to the section index page.
func hugoPath(p string) string {
	if p == "README.md" {
		return "_index.md"
	}
	return p
}

type docusaurusFrontMatter struct {
	SidebarPosition int    `yaml:"sidebar_position"`
	SidebarLabel    string `yaml:"sidebar_label"`
}

// writeDocusaurus writes pages with YAML front matter under OutputDir/docs/
// and a docusaurus.config.js at OutputDir/docusaurus.config.js.
func writeDocusaurus(docs []Document, cfg WriterConfig) error {
	for i, doc := range docs {
		fm, err := frontMatter(docusaurusFrontMatter{SidebarPosition: i + 1, SidebarLabel: doc.Title})
		if err != nil {
			return err
		}
		if err := writeDoc(filepath.Join(cfg.OutputDir, "docs", doc.Path), fm+doc.Content); err != nil {
			return err
		}
	}

	configContent := fmt.Sprintf(`// @ts-check

/** @type {import('@docusaurus/types').Config} */
const config = {
  title: %q,
  url: 'https://your-project-url.example.com',
  baseUrl: '/',
  themes: ['@docusaurus/theme-mermaid'],
  markdown: {
    mermaid: true,
  },
  presets: [
    [
      'classic',
      /** @type {import('@docusaurus/preset-classic').Options} */
      ({
        docs: {
          routeBasePath: '/',
        },
      }),
    ],
  ],
};

module.exports = config;
`, cfg.Title)
	return writeDoc(filepath.Join(cfg.OutputDir, "docusaurus.config.js"), configContent)
}

func frontMatter(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	return "---\n" + string(data) + "---\n\n", nil
}

func writeAnnotated(files map[string]string, dir string) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rel := filepath.FromSlash(p)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("annotated path escapes output directory: %s", p)
		}
		if err := writeDoc(filepath.Join(dir, rel), files[p]); err != nil {
			return err
		}
	}
	return nil
}

// writeDoc creates parent directories and writes content to the given path.
func writeDoc(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
