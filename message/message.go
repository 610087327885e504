package message

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailfold/mailfold/label"
	"github.com/mailfold/mailfold/rfc822"
)

// ErrDummyContent is the panic value raised when header or body content is
// requested from a dummy placeholder. Callers must check IsDummy first.
var ErrDummyContent = errors.New("message: content access on dummy placeholder")

// ErrNoLoader is returned when a not-parsed message has no way to read its
// backing file.
var ErrNoLoader = errors.New("message: not-parsed message has no loader")

// Shape is the identity lifecycle state of a message.
type Shape int

const (
	// ShapeComplete is a fully materialized message.
	ShapeComplete Shape = iota

	// ShapeNotParsed knows its backing file location and possibly a
	// restricted header snapshot; full content loads on first real access.
	ShapeNotParsed

	// ShapeDummy stands in for a message known only by its Message-ID.
	ShapeDummy
)

// Location is where a folder message's bytes live.
type Location struct {
	Filename string
	Number   int
	Offset   int64
	Size     int64
}

// LoadFunc reads the full content of a message from its backing location.
type LoadFunc func(loc Location) (*rfc822.Header, Body, error)

// Message couples one header with one body and owns the message identity,
// its labels, and its modification state.
type Message struct {
	shape Shape

	header *rfc822.Header
	body   Body

	id       string
	labels   label.Set
	modified bool

	loc      Location
	load     LoadFunc
	registry *Registry
}

// New constructs a complete outgoing message. It is born modified so that a
// folder flush will write it out.
func New(header *rfc822.Header, body Body) *Message {
	m := &Message{
		shape:  ShapeComplete,
		header: header,
		labels: label.NewSet(),
	}

	m.SetBody(body)

	return m
}

// NewFromParse constructs a complete message read from a backing file.
func NewFromParse(header *rfc822.Header, body Body, loc Location) *Message {
	return &Message{
		shape:  ShapeComplete,
		header: header,
		body:   body,
		labels: label.NewSet(),
		loc:    loc,
	}
}

// NewDummy constructs a placeholder known only by Message-ID. Its header and
// body accessors fail loudly.
func NewDummy(id string) *Message {
	return &Message{shape: ShapeDummy, id: id, labels: label.NewSet()}
}

// NewNotParsed constructs a lazily loaded message over a backing file. The
// captured fields (typically restored from a folder index) become a partial
// header whose promotion loads the whole message. If the registry already
// tracks this location, the existing handle is returned so all callers share
// one identity.
func NewNotParsed(loc Location, captured []*rfc822.Field, capturedNames []string, load LoadFunc, registry *Registry) *Message {
	if registry != nil {
		if existing, ok := registry.Lookup(loc.Filename, loc.Number); ok {
			return existing
		}
	}

	m := &Message{
		shape:    ShapeNotParsed,
		labels:   label.NewSet(),
		loc:      loc,
		load:     load,
		registry: registry,
	}

	m.header = rfc822.NewPartialHeader(captured, capturedNames, &messageHeaderLoader{m})

	if registry != nil {
		registry.registerLoc(loc, m)

		if id, ok := m.header.Peek("Message-Id"); ok && id != "" {
			m.id = normalizeID(id)
			registry.registerID(m.id, m)
		}
	}

	return m
}

func (m *Message) Shape() Shape { return m.shape }

func (m *Message) IsDummy() bool { return m.shape == ShapeDummy }

// IsParsed reports whether the full content is materialized.
func (m *Message) IsParsed() bool { return m.shape == ShapeComplete }

// Filename, Number and Size answer from the recorded location without
// triggering a load.
func (m *Message) Filename() string { return m.loc.Filename }

func (m *Message) Number() int { return m.loc.Number }

func (m *Message) Size() int64 { return m.loc.Size }

// Location returns the backing location of a folder message.
func (m *Message) Location() Location { return m.loc }

// SetLocation records where the message lives; the owning folder maintains
// this on scan and on flush.
func (m *Message) SetLocation(loc Location) { m.loc = loc }

// Head returns the message header. For a not-parsed message this is the
// partial header: reads inside the captured field set stay cheap, anything
// else promotes the whole message.
func (m *Message) Head() *rfc822.Header {
	if m.shape == ShapeDummy {
		panic(ErrDummyContent)
	}

	if m.header == nil {
		m.header = rfc822.NewHeader()
	}

	return m.header
}

// Body returns the message body, loading the full content first if needed.
func (m *Message) Body() Body {
	if m.shape == ShapeDummy {
		panic(ErrDummyContent)
	}

	if err := m.ensureLoaded(); err != nil {
		logrus.WithError(err).WithField("file", m.loc.Filename).Error("Failed to load message body")
		return NewStringBody(BodyInfo{Type: rfc822.TextPlain}, "")
	}

	return m.body
}

// SetBody replaces the body and re-derives the header's content metadata
// from it, so header and body never disagree.
func (m *Message) SetBody(body Body) {
	if m.shape == ShapeDummy {
		panic(ErrDummyContent)
	}

	m.body = body
	m.modified = true
	m.shape = ShapeComplete

	if m.header == nil {
		m.header = rfc822.NewHeader()
	}

	if body == nil {
		return
	}

	info := body.Info()

	m.header.Del("Content-Length")
	m.header.Del("Lines")
	m.header.Set("Content-Type", info.ContentType())

	if info.Transfer != "" {
		m.header.Set("Content-Transfer-Encoding", info.Transfer)
	} else {
		m.header.Del("Content-Transfer-Encoding")
	}

	if size, err := body.Size(); err == nil {
		m.header.Set("Content-Length", strconv.FormatInt(size, 10))
	}

	if lines, err := body.LineCount(); err == nil {
		m.header.Set("Lines", strconv.Itoa(lines))
	}
}

// MessageID returns the message identity, generating (and recording) one if
// the header has none.
func (m *Message) MessageID() string {
	if m.id != "" {
		return m.id
	}

	if m.shape == ShapeDummy {
		return m.id
	}

	if id, ok := m.Head().Peek("Message-Id"); ok && id != "" {
		m.id = normalizeID(id)
		return m.id
	}

	if m.shape == ShapeNotParsed {
		if err := m.ensureLoaded(); err == nil {
			if id := m.header.Value("Message-Id"); id != "" {
				m.id = normalizeID(id)
				return m.id
			}
		}
	}

	m.id = fmt.Sprintf("mailfold-%s", uuid.NewString())
	m.Head().Set("Message-Id", "<"+m.id+">")

	return m.id
}

// Labels returns the live label set; mutations through it are visible to the
// owning folder. Available on every shape without loading.
func (m *Message) Labels() label.Set { return m.labels }

func (m *Message) Label(name string) (string, bool) {
	return m.labels.Get(name)
}

func (m *Message) SetLabel(name, value string) {
	m.labels.Set(name, value)
}

func (m *Message) ClearLabel(name string) {
	m.labels.Clear(name)
}

// Delete marks the message deleted. The mark is a label, so it is reversible
// until the folder is flushed.
func (m *Message) Delete() {
	m.labels.Set(label.Deleted, strconv.FormatInt(time.Now().Unix(), 10))
}

func (m *Message) Undelete() {
	m.labels.Clear(label.Deleted)
}

func (m *Message) IsDeleted() bool {
	return m.labels.Has(label.Deleted)
}

func (m *Message) IsModified() bool { return m.modified }

// Touch marks the message as needing rewrite on flush.
func (m *Message) Touch() { m.modified = true }

// ClearModified is called by the owning folder once the message has been
// flushed to disk.
func (m *Message) ClearModified() { m.modified = false }

// Print writes the message as it appears in a message file: header, blank
// line, body.
func (m *Message) Print(w io.Writer) error {
	if m.shape == ShapeDummy {
		panic(ErrDummyContent)
	}

	if err := m.ensureLoaded(); err != nil {
		return err
	}

	if err := m.header.Print(w); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if m.body == nil {
		return nil
	}

	return m.body.Print(w)
}

// Clone returns an independent, fully materialized copy.
func (m *Message) Clone() *Message {
	if m.shape == ShapeDummy {
		return NewDummy(m.id)
	}

	if err := m.ensureLoaded(); err != nil {
		logrus.WithError(err).Warn("Cloning a message that failed to load")
	}

	clone := &Message{
		shape:    ShapeComplete,
		header:   m.Head().Clone(),
		id:       m.id,
		labels:   m.labels.Clone(),
		modified: m.modified,
		loc:      m.loc,
	}

	if m.body != nil {
		clone.body = m.body.Clone()
	}

	return clone
}

// ensureLoaded promotes a not-parsed message to complete. Promotion is a
// single idempotent in-place swap: if another handle for the same logical
// message (matched through the identity registry) was already loaded, its
// content is adopted instead of parsing twice.
func (m *Message) ensureLoaded() error {
	if m.shape != ShapeNotParsed {
		return nil
	}

	if m.registry != nil {
		if id, ok := m.header.Peek("Message-Id"); ok {
			if other, ok := m.registry.Resolve(normalizeID(id)); ok && other != m && other.IsParsed() {
				m.adopt(other)
				return nil
			}
		}
	}

	if m.load == nil {
		return ErrNoLoader
	}

	full, body, err := m.load(m.loc)
	if err != nil {
		return err
	}

	m.header.Adopt(full)
	m.body = body
	m.shape = ShapeComplete

	if m.registry != nil {
		m.registry.registerID(m.MessageID(), m)
	}

	return nil
}

func (m *Message) adopt(other *Message) {
	m.header.Adopt(other.header)
	m.body = other.body
	m.shape = ShapeComplete
	m.id = other.id
}

type messageHeaderLoader struct {
	m *Message
}

// LoadHeader promotes the whole message, not just the header: the backing
// file is read in one pass, so the body comes along for free.
func (l *messageHeaderLoader) LoadHeader() (*rfc822.Header, error) {
	if err := l.m.ensureLoaded(); err != nil {
		return nil, err
	}

	return l.m.header, nil
}

func normalizeID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "<>")
}
