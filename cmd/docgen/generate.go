// cmd/docgen/generate.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/output"
	"github.com/julianshen/docgen/internal/pipeline"
	"github.com/julianshen/docgen/internal/runner"
)

// Stage selections offered by --interactive.
const (
	optSummarize = "summarize"
	optAnnotate  = "annotate"
	optReadme    = "readme"
	optVisualize = "visualize"
)

type generateOptions struct {
	branch       string
	zipPath      string
	outputDir    string
	format       string
	report       string
	bundle       string
	noAnnotate   bool
	noSummarize  bool
	noReadme     bool
	noVisualize  bool
	interactive  bool
	dedupOverlap bool
	strict       bool
	timeout      time.Duration
}

// preferences applies the --no-* flags to the full preset.
func (o generateOptions) preferences() pipeline.Preferences {
	p := pipeline.FullPreferences()
	p.Annotate = !o.noAnnotate
	p.Summarize = !o.noSummarize
	p.Readme = !o.noReadme
	p.Visualize = !o.noVisualize
	return p
}

// selectionFor lists the options enabled in p.
func selectionFor(p pipeline.Preferences) []string {
	var out []string
	if p.Summarize {
		out = append(out, optSummarize)
	}
	if p.Annotate {
		out = append(out, optAnnotate)
	}
	if p.Readme {
		out = append(out, optReadme)
	}
	if p.Visualize {
		out = append(out, optVisualize)
	}
	return out
}

// preferencesFromSelection is the inverse of selectionFor.
func preferencesFromSelection(selected []string) pipeline.Preferences {
	var p pipeline.Preferences
	for _, s := range selected {
		switch s {
		case optSummarize:
			p.Summarize = true
		case optAnnotate:
			p.Annotate = true
		case optReadme:
			p.Readme = true
		case optVisualize:
			p.Visualize = true
		}
	}
	return p
}

// askPreferences lets the user pick stages, starting from p.
func askPreferences(p pipeline.Preferences) (pipeline.Preferences, error) {
	selected := selectionFor(p)
	on := make(map[string]bool, len(selected))
	for _, s := range selected {
		on[s] = true
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("What should docgen generate?").
			Options(
				huh.NewOption("File summaries", optSummarize).Selected(on[optSummarize]),
				huh.NewOption("Inline comments", optAnnotate).Selected(on[optAnnotate]),
				huh.NewOption("README", optReadme).Selected(on[optReadme]),
				huh.NewOption("Folder diagram", optVisualize).Selected(on[optVisualize]),
			).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return p, fmt.Errorf("selecting stages: %w", err)
	}
	return preferencesFromSelection(selected), nil
}

func generateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate [path|url|archive.zip|-]",
		Short: "Generate documentation for a directory, repository or archive",
		Long: `Run every documentation stage: summaries, inline comments, a README and a
folder diagram. The target is a local directory, a GitHub or GitLab URL, a
.zip archive, or "-" to read an archive from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			in, err := runner.ResolveInput(target, opts.branch, opts.zipPath, stdinIfPiped())
			if err != nil {
				return err
			}

			prefs := opts.preferences()
			if opts.interactive {
				if prefs, err = askPreferences(prefs); err != nil {
					return err
				}
			}

			a, err := setup()
			if err != nil {
				return err
			}
			if opts.dedupOverlap {
				a.stages.Chunk.Dedup = true
			}

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			req := docgen.Request{Input: in, Preferences: prefs}
			return executeGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), target, req, opts, a.run)
		},
	}

	cmd.Flags().StringVar(&opts.branch, "branch", "", "branch to fetch for repository URLs")
	cmd.Flags().StringVar(&opts.zipPath, "zip", "", "read the project from a .zip archive")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "docs/generated", "output directory (empty to skip writing)")
	cmd.Flags().StringVar(&opts.format, "format", output.FormatRawMarkdown, "site format: raw-md, hugo, docusaurus")
	cmd.Flags().StringVar(&opts.report, "report", "markdown", "report format: json, markdown")
	cmd.Flags().StringVar(&opts.bundle, "bundle", "", "also write the packaged zip to this file")
	cmd.Flags().BoolVar(&opts.noAnnotate, "no-annotate", false, "skip inline comments")
	cmd.Flags().BoolVar(&opts.noSummarize, "no-summarize", false, "skip file summaries")
	cmd.Flags().BoolVar(&opts.noReadme, "no-readme", false, "skip README composition")
	cmd.Flags().BoolVar(&opts.noVisualize, "no-visualize", false, "skip the folder diagram")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "choose stages interactively")
	cmd.Flags().BoolVar(&opts.dedupOverlap, "dedup-overlap", false, "drop repeated overlap lines when joining annotated chunks")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with code 3 if any file or section failed")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "overall run timeout (0 to disable)")

	return cmd
}

// executeGenerate runs req, writes the site and bundle, and prints the
// report to out. Progress lines go to errOut.
func executeGenerate(ctx context.Context, out, errOut io.Writer, source string, req docgen.Request, opts generateOptions, run runner.RunFunc) error {
	formatter, err := output.NewFormatter(opts.report)
	if err != nil {
		return err
	}

	fmt.Fprintln(errOut, styleInfo.Render("Generating documentation for "+source))
	report, runErr := runner.NewHeadlessRunner(run).Run(ctx, source, req)
	if runErr == nil {
		if err := writeArtifacts(report.Result, opts); err != nil {
			return err
		}
	}

	data, err := formatter.Format(report)
	if err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	fmt.Fprint(out, string(data))

	if runErr != nil {
		fmt.Fprintln(errOut, styleError.Render("Run failed: "+runErr.Error()))
		return &runner.ExitError{Code: runner.ExitCodeFromError(runErr)}
	}
	if n := len(report.Failures); n > 0 {
		fmt.Fprintln(errOut, styleWarn.Render(fmt.Sprintf("%d unit(s) failed", n)))
	} else {
		fmt.Fprintln(errOut, styleOK.Render("Done"))
	}
	if code := runner.ExitCodeFromFailures(report.Failures, opts.strict); code != runner.ExitOK {
		return &runner.ExitError{Code: code}
	}
	return nil
}

func writeArtifacts(res *docgen.Result, opts generateOptions) error {
	if opts.outputDir != "" {
		cfg := output.WriterConfig{Format: opts.format, OutputDir: opts.outputDir}
		if err := output.Write(res, cfg); err != nil {
			return fmt.Errorf("writing documentation: %w", err)
		}
	}
	if opts.bundle != "" && len(res.ArchiveBytes) > 0 {
		if err := os.WriteFile(opts.bundle, res.ArchiveBytes, 0o644); err != nil {
			return fmt.Errorf("writing bundle: %w", err)
		}
	}
	return nil
}

// stdinIfPiped returns os.Stdin when it is not a terminal.
func stdinIfPiped() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		return os.Stdin
	}
	return nil
}
