package provider

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent represents a single Server-Sent Event.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEScanner reads SSE events from an io.Reader one at a time. Usage
// follows the bufio.Scanner pattern:
//
//	s := NewSSEScanner(r)
//	for s.Next() {
//	    evt := s.Event()
//	}
//	if err := s.Err(); err != nil { ... }
type SSEScanner struct {
	scanner *bufio.Scanner
	event   SSEEvent
	err     error
	done    bool
}

// NewSSEScanner creates a streaming SSE parser over r. Lines may be up to
// 1 MB long.
func NewSSEScanner(r io.Reader) *SSEScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &SSEScanner{scanner: sc}
}

// Next advances to the next event. It returns false at end of stream or on
// error; check Err afterwards.
func (s *SSEScanner) Next() bool {
	if s.done {
		return false
	}

	var current SSEEvent
	hasData := false

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if hasData || current.Event != "" {
				s.event = current
				return true
			}
			continue
		}

		// comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event:") {
			current.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if hasData {
				current.Data += "\n" + data
			} else {
				current.Data = data
				hasData = true
			}
		}
	}

	s.err = s.scanner.Err()
	s.done = true

	// stream ended without a trailing blank line
	if hasData || current.Event != "" {
		s.event = current
		return true
	}
	return false
}

// Event returns the most recent event read by Next.
func (s *SSEScanner) Event() SSEEvent {
	return s.event
}

// Err returns the first non-EOF error encountered.
func (s *SSEScanner) Err() error {
	return s.err
}
