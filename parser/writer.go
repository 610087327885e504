package parser

import (
	"io"

	"github.com/mailfold/mailfold/message"
)

// WriteOptions tunes WriteMessage.
type WriteOptions struct {
	// BodyOnly omits the header and the separating blank line.
	BodyOnly bool

	// Undisclosed withholds the blind-copy recipients from the output.
	Undisclosed bool
}

// undisclosedFields are never written when Undisclosed is set.
var undisclosedFields = []string{"Bcc", "Resent-Bcc"}

// WriteToStream serializes a message to a sink. This is the interface the
// network transports produce from.
func WriteToStream(m *message.Message, w io.Writer, opts WriteOptions) error {
	return WriteMessage(w, m, opts)
}

// WriteMessage writes the message as header, blank line, body.
func WriteMessage(w io.Writer, m *message.Message, opts WriteOptions) error {
	if !opts.BodyOnly {
		var skip []string

		if opts.Undisclosed {
			skip = undisclosedFields
		}

		if err := m.Head().PrintFiltered(w, skip); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	return m.Body().Print(w)
}
