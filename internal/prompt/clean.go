package prompt

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThink removes <think>...</think> reasoning blocks some models emit
// ahead of their answer.
func StripThink(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}

// StripFences removes a single code fence wrapping the whole response,
// including an optional language tag such as ```markdown or ```mermaid.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return strings.TrimSpace(strings.Trim(text, "`"))
	}
	text = text[nl+1:]
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Clean strips reasoning blocks and fences.
func Clean(text string) string {
	return StripFences(StripThink(text))
}

// SplitSummary separates combined output into code and summary. Every line
// starting with SummaryMarker is removed from the code; their texts are
// joined with a space. ok reports whether any marker was found.
func SplitSummary(text string) (code, summary string, ok bool) {
	var codeLines, summaries []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, SummaryMarker) {
			if s := strings.TrimSpace(strings.TrimPrefix(trimmed, SummaryMarker)); s != "" {
				summaries = append(summaries, s)
			}
			ok = true
			continue
		}
		codeLines = append(codeLines, line)
	}
	return strings.TrimRight(strings.Join(codeLines, "\n"), "\n "), strings.Join(summaries, " "), ok
}
