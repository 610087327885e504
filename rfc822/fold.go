package rfc822

import (
	"bufio"
	"bytes"
	"strings"
)

// DefaultWrapWidth is the wrap width used when none is configured.
const DefaultWrapWidth = 78

// MinWrapWidth is the smallest width Fold accepts; narrower requests are
// clamped to it so that a field name plus a few body characters always fit.
const MinWrapWidth = 20

// Unfold merges the continuation lines of a raw header field into a single
// logical line. Each continuation contributes exactly one joining space, so
// folding and unfolding again is loss-less for content.
func Unfold(raw []byte) string {
	var parts []string

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if trimmed := strings.TrimLeft(line, " \t"); trimmed != "" || len(parts) == 0 {
			if len(parts) == 0 {
				parts = append(parts, line)
			} else {
				parts = append(parts, trimmed)
			}
		}
	}

	return strings.Join(parts, " ")
}

// Fold splits an unfolded field body into raw lines of at most width bytes,
// including the "Name: " run-in on the first line. The cut point is the last
// structural separator (for structured fields), falling back to the last
// whitespace, falling back to a hard cut. Continuation lines begin with a
// single space as RFC 2822 requires.
func Fold(name, body string, width int, structured bool) []string {
	if width <= 0 {
		width = DefaultWrapWidth
	}

	if width < MinWrapWidth {
		width = MinWrapWidth
	}

	var lines []string

	prefix := name + ": "
	rest := body

	for {
		avail := width - len(prefix)

		// A name longer than the width still gets one body byte per line.
		if avail < 1 {
			avail = 1
		}

		if len(rest) <= avail {
			lines = append(lines, prefix+rest)
			break
		}

		cut, eatSpace := foldCut(rest, avail, structured)

		lines = append(lines, prefix+rest[:cut])

		rest = rest[cut:]
		if eatSpace && len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}

		// Continuation lines carry a single leading space.
		prefix = " "
	}

	return lines
}

// foldCut picks where to break rest so that the emitted chunk is at most
// avail bytes. It reports whether a single following space should be folded
// away (it is re-introduced by the continuation join on unfold).
func foldCut(rest string, avail int, structured bool) (int, bool) {
	window := rest[:avail]

	if structured {
		if idx := strings.LastIndexAny(window, ",;"); idx > 0 {
			return idx + 1, true
		}
	}

	if idx := strings.LastIndexAny(window, " \t"); idx > 0 {
		return idx, true
	}

	// Nowhere acceptable to break: hard cut.
	return avail, false
}
