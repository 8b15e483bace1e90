// Package chunker splits source text into overlapping line windows sized
// for a model's context budget, and groups summary texts under a character
// budget for multi-pass composition.
package chunker

import "strings"

const (
	// DefaultSize is the nominal number of lines per chunk.
	DefaultSize = 300
	// DefaultOverlap is the number of lines shared by adjacent chunks.
	DefaultOverlap = 10
	// DefaultGroupChars is the character budget for Group.
	DefaultGroupChars = 6000
)

// Range is a half-open, 0-based line interval [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of lines in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Config controls chunk sizing.
type Config struct {
	Size    int  // lines per chunk
	Overlap int  // lines shared with the previous chunk
	Dedup   bool // drop overlap lines when joining chunk outputs
}

// DefaultConfig returns the default chunk sizing with overlap preserved.
func DefaultConfig() Config {
	return Config{
		Size:    DefaultSize,
		Overlap: DefaultOverlap,
	}
}

// normalize clamps size and overlap so the step is always positive.
func normalize(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return size, overlap
}

// splitLines breaks text into lines without their terminators. A trailing
// newline does not produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Lines returns the ordered line ranges covering text. Each range starts
// size-overlap lines after the previous one; the last range may be shorter
// than size. Empty text yields no ranges.
func Lines(text string, size, overlap int) []Range {
	return ranges(len(splitLines(text)), size, overlap)
}

func ranges(total, size, overlap int) []Range {
	if total == 0 {
		return nil
	}
	size, overlap = normalize(size, overlap)
	step := size - overlap

	var out []Range
	for start := 0; start < total; start += step {
		end := start + size
		if end > total {
			end = total
		}
		out = append(out, Range{Start: start, End: end})
		if end == total {
			break
		}
	}
	return out
}

// Split returns the text of each chunk of text, joined with "\n".
func Split(text string, size, overlap int) []string {
	lines := splitLines(text)
	rs := ranges(len(lines), size, overlap)
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, strings.Join(lines[r.Start:r.End], "\n"))
	}
	return out
}

// Join concatenates per-chunk outputs with a blank line between them. When
// dedup is set, the first overlap lines of every part after the first are
// dropped so regions shared by adjacent chunks appear once.
func Join(parts []string, overlap int, dedup bool) string {
	if !dedup || overlap <= 0 {
		return strings.Join(parts, "\n\n")
	}
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			lines := splitLines(p)
			if len(lines) <= overlap {
				continue
			}
			p = strings.Join(lines[overlap:], "\n")
		}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// Group packs items into consecutive groups whose combined length, counting
// one separator character per item, stays within maxChars. An item longer
// than the budget forms a group of its own.
func Group(items []string, maxChars int) [][]string {
	if maxChars <= 0 {
		maxChars = DefaultGroupChars
	}

	var groups [][]string
	var current []string
	size := 0
	for _, item := range items {
		n := len(item) + 1
		if len(current) > 0 && size+n > maxChars {
			groups = append(groups, current)
			current = nil
			size = 0
		}
		current = append(current, item)
		size += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
