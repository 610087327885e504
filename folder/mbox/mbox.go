// Package mbox implements the one-file-per-mailbox layout: messages
// concatenated into a single file, separated by "From " lines, with message
// state carried in Status and X-Status headers.
package mbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gombox "github.com/emersion/go-mbox"
	"github.com/sirupsen/logrus"

	"github.com/mailfold/mailfold/folder"
	"github.com/mailfold/mailfold/label"
	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/parser"
)

// rxFromLine matches body lines that would read back as message separators;
// they get one more ">" on write.
var rxFromLine = regexp.MustCompile(`^>*From `)

// rxDeepQuoted matches lines still carrying two or more quoting levels after
// the mbox reader's single-level ">From " unescape.
var rxDeepQuoted = regexp.MustCompile(`^>>+From `)

// Mbox is an open single-file mailbox. Unlike the directory layout it has no
// index or labels sidecars, so every message is parsed eagerly at open.
type Mbox struct {
	cfg      folder.Config
	path     string
	lock     *folder.DotLock
	msgs     []*message.Message
	readOnly bool
}

var _ folder.Folder = (*Mbox)(nil)

// Open reads a mailbox file into memory. The file is created when missing
// and creation was requested.
func Open(path string, options ...folder.Option) (*Mbox, error) {
	cfg := folder.NewConfig(options...)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !cfg.Create {
			return nil, fmt.Errorf("%w: %v", folder.ErrNoFolder, path)
		}

		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("creating mailbox file: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	m := &Mbox{
		cfg:      cfg,
		path:     path,
		lock:     folder.NewDotLock(path + cfg.LockSuffix),
		readOnly: cfg.Access == folder.ReadOnly,
	}

	if !m.readOnly {
		if err := m.lock.Acquire(cfg.LockTimeout, cfg.LockPoll); err != nil {
			return nil, err
		}
	}

	if err := m.scan(); err != nil {
		m.lock.Release()
		return nil, err
	}

	return m, nil
}

func (m *Mbox) Name() string {
	return m.path
}

func (m *Mbox) Messages(filter folder.Filter) []*message.Message {
	var res []*message.Message

	for _, msg := range m.msgs {
		if folder.Keep(msg, filter) {
			res = append(res, msg)
		}
	}

	return res
}

func (m *Mbox) Add(msg *message.Message) error {
	if m.readOnly {
		return folder.ErrReadOnly
	}

	msg.Touch()

	m.msgs = append(m.msgs, msg)

	return nil
}

// Write rewrites the whole mailbox file from the surviving messages, via a
// temp file and rename. Deleted messages are dropped for good.
func (m *Mbox) Write() error {
	if m.readOnly {
		return folder.ErrReadOnly
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".mbox-")
	if err != nil {
		return err
	}

	var kept []*message.Message

	for _, msg := range m.msgs {
		if msg.IsDeleted() {
			continue
		}

		if err := writeMboxMessage(tmp, msg, m.cfg.WrapWidth); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())

			return err
		}

		kept = append(kept, msg)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return err
	}

	m.msgs = kept

	for idx, msg := range m.msgs {
		loc := msg.Location()
		loc.Number = idx + 1
		msg.SetLocation(loc)
		msg.ClearModified()
	}

	return nil
}

func (m *Mbox) Close(policy folder.WritePolicy) error {
	defer m.lock.Release()

	if policy == folder.Flush && !m.readOnly {
		return m.Write()
	}

	return nil
}

// Append delivers messages to the end of a mailbox file without reading it.
func Append(path string, msgs []*message.Message, options ...folder.Option) error {
	cfg := folder.NewConfig(options...)

	lock := folder.NewDotLock(path + cfg.LockSuffix)

	if err := lock.Acquire(cfg.LockTimeout, cfg.LockPoll); err != nil {
		return err
	}
	defer lock.Release()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := writeMboxMessage(f, msg, cfg.WrapWidth); err != nil {
			f.Close()
			return err
		}

		msg.ClearModified()
	}

	return f.Close()
}

func (m *Mbox) scan() error {
	f, err := os.Open(m.path)
	if err != nil {
		return err
	}
	defer f.Close()

	mr := gombox.NewReader(f)

	for n := 1; ; n++ {
		r, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			logrus.WithError(err).WithField("path", m.path).Warn("Stopping at damaged mailbox region")
			return nil
		}

		raw, err := io.ReadAll(r)
		if err != nil {
			logrus.WithError(err).WithField("number", n).Warn("Skipping unreadable mailbox message")
			continue
		}

		// The mbox reader splits on separator lines and strips one ">" from
		// ">From " lines, but leaves deeper quoting levels alone. Strip the
		// one ">" the writer added to those as well, so reading exactly
		// inverts writing.
		msg, err := parser.New(bytes.NewReader(unquoteDeepFrom(raw))).ReadMessage()
		if err != nil {
			logrus.WithError(err).WithField("number", n).Warn("Skipping unreadable mailbox message")
			continue
		}

		loc := msg.Location()
		loc.Filename = filepath.Base(m.path)
		loc.Number = n
		msg.SetLocation(loc)

		applyStatus(msg)

		m.msgs = append(m.msgs, msg)
	}
}

// Status/X-Status header flags and the labels they carry. This is how the
// single-file layout persists state the directory layout keeps in its labels
// file.
var statusFlags = []struct {
	header string
	flag   rune
	label  string
}{
	{"Status", 'R', label.Seen},
	{"Status", 'O', label.Old},
	{"X-Status", 'A', label.Replied},
	{"X-Status", 'F', label.Flagged},
	{"X-Status", 'T', label.Draft},
	{"X-Status", 'D', label.Deleted},
}

func applyStatus(msg *message.Message) {
	for _, sf := range statusFlags {
		if strings.ContainsRune(msg.Head().Value(sf.header), sf.flag) {
			msg.SetLabel(sf.label, "1")
		}
	}
}

// setStatusHeaders rewrites Status and X-Status from the message's labels.
// The deleted flag is never written: deleted messages are purged at flush.
func setStatusHeaders(msg *message.Message) {
	if !msg.Labels().HasAny(label.Seen, label.Old, label.Replied, label.Flagged, label.Draft) {
		msg.Head().Del("Status")
		msg.Head().Del("X-Status")

		return
	}

	var status, xstatus strings.Builder

	for _, sf := range statusFlags {
		if sf.label == label.Deleted || !msg.Labels().Has(sf.label) {
			continue
		}

		if sf.header == "Status" {
			status.WriteRune(sf.flag)
		} else {
			xstatus.WriteRune(sf.flag)
		}
	}

	if status.Len() > 0 {
		msg.Head().Set("Status", status.String())
	} else {
		msg.Head().Del("Status")
	}

	if xstatus.Len() > 0 {
		msg.Head().Set("X-Status", xstatus.String())
	} else {
		msg.Head().Del("X-Status")
	}
}

func writeMboxMessage(w io.Writer, msg *message.Message, wrapWidth int) error {
	setStatusHeaders(msg)

	if wrapWidth > 0 {
		msg.Head().SetWrapWidth(wrapWidth)
	}

	buf := new(bytes.Buffer)

	if err := parser.WriteMessage(buf, msg, parser.WriteOptions{}); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "From %s %s\n", envelopeSender(msg), time.Now().UTC().Format(time.ANSIC)); err != nil {
		return err
	}

	if _, err := w.Write(quoteFromLines(buf.Bytes())); err != nil {
		return err
	}

	// Blank line separating this message from the next From line.
	_, err := io.WriteString(w, "\n")

	return err
}

func envelopeSender(msg *message.Message) string {
	if rp := strings.Trim(msg.Head().Value("Return-Path"), "<>"); rp != "" {
		return rp
	}

	// The separator line wants a bare address; take the addr-spec token
	// from the From field.
	if fields := strings.Fields(msg.Head().Value("From")); len(fields) > 0 {
		if addr := strings.Trim(fields[len(fields)-1], "<>"); addr != "" {
			return addr
		}
	}

	return "MAILER-DAEMON"
}

// quoteFromLines protects body lines that would read back as message
// separators by prefixing one ">". The read side strips exactly one, so the
// transformation round-trips.
func quoteFromLines(b []byte) []byte {
	var out bytes.Buffer

	for _, line := range bytes.SplitAfter(b, []byte("\n")) {
		if rxFromLine.Match(line) {
			out.WriteByte('>')
		}

		out.Write(line)
	}

	return out.Bytes()
}

// unquoteDeepFrom removes one ">" from quoted From lines the mbox reader left
// untouched (it only unescapes the single-level ">From " form).
func unquoteDeepFrom(b []byte) []byte {
	var out bytes.Buffer

	for _, line := range bytes.SplitAfter(b, []byte("\n")) {
		if rxDeepQuoted.Match(line) {
			line = line[1:]
		}

		out.Write(line)
	}

	return out.Bytes()
}
