package rfc822

import (
	"io"
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"github.com/sirupsen/logrus"
)

// HeaderState is the materialization state of a Header.
type HeaderState int

const (
	// HeaderComplete means all fields are known. Terminal; never reverts.
	HeaderComplete HeaderState = iota

	// HeaderDelayed means nothing has been parsed yet; only the byte source
	// is known. Any access promotes to HeaderComplete.
	HeaderDelayed

	// HeaderPartial means only a captured subset of field names is known
	// (typically restored from a folder index cache). Reads inside the
	// captured set are answered directly; reads outside it promote to
	// HeaderComplete.
	HeaderPartial
)

// Loader re-reads the complete header from the owning message's byte source.
// It is the non-owning back-link from a Header to whatever can materialize
// it; promotion through it must be idempotent.
type Loader interface {
	LoadHeader() (*Header, error)
}

// Header is an ordered multimap of fields. Insertion order is preserved for
// write-back fidelity; a name may repeat (e.g. Received).
type Header struct {
	state  HeaderState
	fields []*Field
	known  map[string]struct{}
	loader Loader
	wrap   int
}

// NewHeader returns an empty header in the complete state.
func NewHeader() *Header {
	return &Header{state: HeaderComplete}
}

// NewHeaderFromFields returns a complete header over the given fields.
func NewHeaderFromFields(fields []*Field) *Header {
	return &Header{state: HeaderComplete, fields: fields}
}

// NewDelayedHeader returns a header whose content is read through loader on
// first access.
func NewDelayedHeader(loader Loader) *Header {
	return &Header{state: HeaderDelayed, loader: loader}
}

// NewPartialHeader returns a header holding only the captured fields; the
// captured name set bounds what can be answered without promotion.
func NewPartialHeader(fields []*Field, captured []string, loader Loader) *Header {
	known := make(map[string]struct{}, len(captured))

	for _, name := range captured {
		known[strings.ToLower(name)] = struct{}{}
	}

	return &Header{state: HeaderPartial, fields: fields, known: known, loader: loader}
}

func (h *Header) State() HeaderState {
	return h.state
}

func (h *Header) IsDelayed() bool {
	return h.state == HeaderDelayed
}

func (h *Header) IsComplete() bool {
	return h.state == HeaderComplete
}

// SetWrapWidth sets the fold width used when printing. Zero means
// DefaultWrapWidth.
func (h *Header) SetWrapWidth(width int) {
	h.wrap = width
}

// Get returns the first field with the given name, or nil.
func (h *Header) Get(name string) *Field {
	h.ensureKnown(name)

	for _, field := range h.fields {
		if strings.EqualFold(field.Name(), name) {
			return field
		}
	}

	return nil
}

// GetAll returns every field with the given name, in order.
func (h *Header) GetAll(name string) []*Field {
	h.ensureKnown(name)

	var res []*Field

	for _, field := range h.fields {
		if strings.EqualFold(field.Name(), name) {
			res = append(res, field)
		}
	}

	return res
}

// Value returns the unfolded body of the first field with the given name.
func (h *Header) Value(name string) string {
	if field := h.Get(name); field != nil {
		return field.Body()
	}

	return ""
}

// Has reports whether a field with the given name is present.
func (h *Header) Has(name string) bool {
	return h.Get(name) != nil
}

// Add appends a field, preserving insertion order.
func (h *Header) Add(field *Field) {
	h.ensureComplete()

	h.fields = append(h.fields, field)
}

// Set replaces the body of the first field with the given name, or appends a
// new field if none exists.
func (h *Header) Set(name, body string) {
	h.ensureComplete()

	for _, field := range h.fields {
		if strings.EqualFold(field.Name(), name) {
			field.SetBody(body)
			return
		}
	}

	h.fields = append(h.fields, NewField(name, body))
}

// Del removes every field with the given name.
func (h *Header) Del(name string) {
	h.ensureComplete()

	h.fields = xslices.Filter(h.fields, func(field *Field) bool {
		return !strings.EqualFold(field.Name(), name)
	})
}

// Names returns the distinct field names in first-appearance order.
func (h *Header) Names() []string {
	h.ensureComplete()

	var (
		names []string
		seen  = make(map[string]struct{})
	)

	for _, field := range h.fields {
		lower := strings.ToLower(field.Name())

		if _, ok := seen[lower]; ok {
			continue
		}

		seen[lower] = struct{}{}
		names = append(names, field.Name())
	}

	return names
}

// Fields returns all fields in order.
func (h *Header) Fields() []*Field {
	h.ensureComplete()

	return append([]*Field(nil), h.fields...)
}

// Snapshot returns the currently materialized fields without promoting a
// delayed or partial header. Folder index writers use it to re-emit cached
// entries for messages that were never loaded.
func (h *Header) Snapshot() []*Field {
	return append([]*Field(nil), h.fields...)
}

// Len returns the number of fields currently materialized.
func (h *Header) Len() int {
	return len(h.fields)
}

// Print folds and writes every field. The terminating blank line is the
// caller's business.
func (h *Header) Print(w io.Writer) error {
	return h.PrintFiltered(w, nil)
}

// PrintFiltered folds and writes every field whose name is not in skip.
func (h *Header) PrintFiltered(w io.Writer, skip []string) error {
	h.ensureComplete()

	for _, field := range h.fields {
		if xslices.IndexFunc(skip, func(name string) bool {
			return strings.EqualFold(name, field.Name())
		}) >= 0 {
			continue
		}

		for _, line := range field.Fold(h.wrap) {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
	}

	return nil
}

// Clone returns an independent, complete copy of the header.
func (h *Header) Clone() *Header {
	h.ensureComplete()

	fields := make([]*Field, len(h.fields))
	for idx, field := range h.fields {
		fields[idx] = field.Clone()
	}

	return &Header{state: HeaderComplete, fields: fields, wrap: h.wrap}
}

// Peek answers like Value but only when it can do so without promotion.
// It reports false for a delayed header or a partial header asked about a
// name outside its captured set.
func (h *Header) Peek(name string) (string, bool) {
	switch h.state {
	case HeaderDelayed:
		return "", false

	case HeaderPartial:
		if _, ok := h.known[strings.ToLower(name)]; !ok {
			return "", false
		}
	}

	for _, field := range h.fields {
		if strings.EqualFold(field.Name(), name) {
			return field.Body(), true
		}
	}

	return "", false
}

// Adopt replaces the header's content with that of full and marks it
// complete. This is how a message promotes the partial header handed out to
// callers: in place, so every outstanding reference observes it.
func (h *Header) Adopt(full *Header) {
	if h != full {
		h.fields = full.fields
	}

	h.state = HeaderComplete
	h.known = nil
	h.loader = nil
}

// ensureKnown promotes the header if answering for name requires it. This is
// the Partial fast path: captured names never trigger a re-parse.
func (h *Header) ensureKnown(name string) {
	if h.state == HeaderPartial {
		if _, ok := h.known[strings.ToLower(name)]; ok {
			return
		}
	}

	h.ensureComplete()
}

// ensureComplete promotes a delayed or partial header by re-parsing from the
// byte source. Promotion is idempotent and in place: the fields of the newly
// parsed header are adopted into this instance, so every outstanding
// reference observes the promotion.
func (h *Header) ensureComplete() {
	if h.state == HeaderComplete {
		return
	}

	if h.loader == nil {
		h.state = HeaderComplete
		h.known = nil

		return
	}

	full, err := h.loader.LoadHeader()
	if err != nil {
		logrus.WithError(err).Warn("Failed to promote header; keeping captured fields")
		return
	}

	h.fields = full.fields
	h.state = HeaderComplete
	h.known = nil
	h.loader = nil
}
