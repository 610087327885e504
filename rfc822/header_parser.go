package rfc822

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseHeader parses a raw header block (everything up to but excluding the
// blank line) into a complete Header. Continuation lines are merged into the
// preceding field with exactly one joining space. A line without a colon ends
// the header: it is logged and left uninterpreted rather than failing the
// whole parse.
func ParseHeader(raw []byte) *Header {
	var fields []*Field

	var (
		name string
		body strings.Builder
		open bool
	)

	flush := func() {
		if open {
			fields = append(fields, NewField(name, body.String()))
			body.Reset()
			open = false
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if len(strings.TrimSpace(line)) == 0 {
			break
		}

		// Continuation: merge into the previous field with one space.
		if line[0] == ' ' || line[0] == '\t' {
			if !open {
				logrus.WithField("line", line).Warn("Continuation line before any header field; skipped")
				continue
			}

			body.WriteString(" ")
			body.WriteString(strings.TrimLeft(line, " \t"))

			continue
		}

		key, val, found := strings.Cut(line, ":")
		if !found {
			flush()
			logrus.WithField("line", line).Warn("Header line without colon; treating header as ended")

			break
		}

		flush()

		name = strings.TrimSpace(key)
		open = true

		body.WriteString(strings.TrimSpace(val))
	}

	flush()

	return NewHeaderFromFields(fields)
}
