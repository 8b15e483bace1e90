// cmd/docgen/preview.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/pipeline"
	"github.com/julianshen/docgen/internal/runner"
)

const defaultWrapWidth = 100

func previewCmd() *cobra.Command {
	var (
		branchFlag string
		zipFlag    string
	)

	cmd := &cobra.Command{
		Use:   "preview [path|url|archive.zip|-]",
		Short: "Preview the README and diagram without annotating files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			in, err := runner.ResolveInput(target, branchFlag, zipFlag, stdinIfPiped())
			if err != nil {
				return err
			}
			a, err := setup()
			if err != nil {
				return err
			}

			req := docgen.Request{Input: in, Preferences: pipeline.PreviewPreferences()}
			fd := int(os.Stdout.Fd())
			width := 0
			if term.IsTerminal(fd) {
				width = defaultWrapWidth
				if w, _, err := term.GetSize(fd); err == nil && w > 0 {
					width = w
				}
			}
			return executePreview(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), req, width, a.run)
		},
	}

	cmd.Flags().StringVar(&branchFlag, "branch", "", "branch to fetch for repository URLs")
	cmd.Flags().StringVar(&zipFlag, "zip", "", "read the project from a .zip archive")

	return cmd
}

// previewMarkdown assembles the README and diagram into one document.
func previewMarkdown(res *docgen.Result) string {
	md := res.README
	if md == "" {
		md = "_No README was generated._"
	}
	if d := res.Diagram(); d != "" {
		md += "\n\n## Folder Structure\n\n```mermaid\n" + d + "\n```\n"
	}
	return md
}

// executePreview runs req and prints the preview. A positive width renders
// the Markdown for a terminal of that width; zero prints it raw.
func executePreview(ctx context.Context, out, errOut io.Writer, req docgen.Request, width int, run runner.RunFunc) error {
	res, err := run(ctx, req)
	if err != nil {
		fmt.Fprintln(errOut, styleError.Render("Run failed: "+err.Error()))
		return &runner.ExitError{Code: runner.ExitCodeFromError(err)}
	}

	md := previewMarkdown(res)
	if width > 0 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("creating markdown renderer: %w", err)
		}
		if rendered, err := r.Render(md); err == nil {
			md = rendered
		}
	}
	fmt.Fprintln(out, md)

	for _, f := range res.Failures {
		fmt.Fprintln(errOut, styleWarn.Render(fmt.Sprintf("%s %s: %v", f.Stage, f.Unit, f.Err)))
	}
	return nil
}
