// Package mh implements the file-per-message folder layout: one directory,
// one numbered file per message, with a header index cache and a labels file
// kept alongside the messages.
package mh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/mailfold/mailfold/folder"
	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/parser"
	"github.com/mailfold/mailfold/rfc822"
)

// MH is an open file-per-message folder. It is single-threaded; the caller
// serializes access, the folder lock only guards against other processes.
type MH struct {
	cfg      folder.Config
	path     string
	lock     *folder.DotLock
	registry *message.Registry
	msgs     []*message.Message
	highest  int
	readOnly bool
}

var _ folder.Folder = (*MH)(nil)

// Open scans a folder directory and returns the open folder. The directory
// is created when missing and creation was requested; a directory that turns
// out to be unwritable degrades the folder to read-only with a warning.
func Open(path string, options ...folder.Option) (*MH, error) {
	cfg := folder.NewConfig(options...)

	info, err := os.Stat(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		if !cfg.Create {
			return nil, fmt.Errorf("%w: %v", folder.ErrNoFolder, path)
		}

		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating folder directory: %w", err)
		}

	case err != nil:
		return nil, err

	case !info.IsDir():
		return nil, fmt.Errorf("%w: %v is not a directory", folder.ErrNoFolder, path)
	}

	mh := &MH{
		cfg:      cfg,
		path:     path,
		lock:     folder.NewDotLock(lockPath(path, cfg)),
		registry: message.NewRegistry(),
		readOnly: cfg.Access == folder.ReadOnly,
	}

	if !mh.readOnly && !writable(path) {
		logrus.WithField("path", path).Warn("Folder directory is not writable; opening read-only")
		mh.readOnly = true
	}

	if !mh.readOnly {
		if err := mh.lock.Acquire(cfg.LockTimeout, cfg.LockPoll); err != nil {
			return nil, err
		}
	}

	if err := mh.scan(); err != nil {
		mh.lock.Release()
		return nil, err
	}

	return mh, nil
}

func (mh *MH) Name() string {
	return mh.path
}

// IsReadOnly reports whether mutations will be refused, either because the
// folder was opened read-only or because it degraded at open time.
func (mh *MH) IsReadOnly() bool {
	return mh.readOnly
}

// Highest returns the highest message number seen in the directory.
func (mh *MH) Highest() int {
	return mh.highest
}

// Registry exposes the folder's identity index. Handles constructed for the
// same backing file resolve through it to one shared message.
func (mh *MH) Registry() *message.Registry {
	return mh.registry
}

func (mh *MH) Messages(filter folder.Filter) []*message.Message {
	var res []*message.Message

	for _, m := range mh.msgs {
		if folder.Keep(m, filter) {
			res = append(res, m)
		}
	}

	return res
}

// Add appends a message to the folder. It is written out on the next flush.
func (mh *MH) Add(m *message.Message) error {
	if mh.readOnly {
		return folder.ErrReadOnly
	}

	m.Touch()

	mh.msgs = append(mh.msgs, m)

	return nil
}

// Write flushes all pending changes: deleted messages are unlinked, the
// survivors are renumbered densely from 1, new and modified messages are
// written out, and the labels and index files are rewritten to match.
func (mh *MH) Write() error {
	if mh.readOnly {
		return folder.ErrReadOnly
	}

	var kept []*message.Message

	next := 1

	for _, m := range mh.msgs {
		if m.IsDeleted() {
			if err := mh.unlink(m); err != nil {
				return err
			}

			continue
		}

		if err := mh.place(m, next); err != nil {
			return err
		}

		next++

		kept = append(kept, m)
	}

	mh.msgs = kept

	// Renumbering packs messages below the old ceiling; the high-water
	// mark is monotonic for the lifetime of the open folder.
	if n := next - 1; n > mh.highest {
		mh.highest = n
	}

	if err := writeLabelTable(filepath.Join(mh.path, mh.cfg.LabelsFilename), buildLabelTable(mh.msgs)); err != nil {
		return err
	}

	if mh.cfg.KeepIndex {
		if err := writeIndex(filepath.Join(mh.path, mh.cfg.IndexFilename), mh.msgs); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the folder, flushing first when the policy says so.
func (mh *MH) Close(policy folder.WritePolicy) error {
	defer mh.lock.Release()

	if policy == folder.Flush && !mh.readOnly {
		return mh.Write()
	}

	return nil
}

// Append writes messages to a folder without opening it: only the current
// highest number and the labels file are read, no message is parsed. This is
// the delivery fast path for large folders.
func Append(path string, msgs []*message.Message, options ...folder.Option) error {
	cfg := folder.NewConfig(options...)

	info, err := os.Stat(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		if !cfg.Create {
			return fmt.Errorf("%w: %v", folder.ErrNoFolder, path)
		}

		if err := os.MkdirAll(path, 0o700); err != nil {
			return fmt.Errorf("creating folder directory: %w", err)
		}

	case err != nil:
		return err

	case !info.IsDir():
		return fmt.Errorf("%w: %v is not a directory", folder.ErrNoFolder, path)
	}

	lock := folder.NewDotLock(lockPath(path, cfg))

	if err := lock.Acquire(cfg.LockTimeout, cfg.LockPoll); err != nil {
		return err
	}
	defer lock.Release()

	table, err := readLabelTable(filepath.Join(path, cfg.LabelsFilename))
	if err != nil {
		return err
	}

	next, err := highestNumber(path)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		next++

		name := strconv.Itoa(next)

		if err := writeMessageFile(path, name, m, cfg.WrapWidth); err != nil {
			return err
		}

		m.SetLocation(message.Location{Filename: name, Number: next})
		m.ClearModified()

		table.add(m)
	}

	return writeLabelTable(filepath.Join(path, cfg.LabelsFilename), table)
}

func (mh *MH) scan() error {
	table, err := readLabelTable(filepath.Join(mh.path, mh.cfg.LabelsFilename))
	if err != nil {
		return err
	}

	var (
		snapshots map[string]*rfc822.Header
		indexTime time.Time
	)

	if mh.cfg.KeepIndex {
		snapshots, indexTime, err = readIndex(filepath.Join(mh.path, mh.cfg.IndexFilename))
		if err != nil {
			logrus.WithError(err).WithField("path", mh.path).Warn("Unreadable folder index; re-parsing all messages")
			snapshots = nil
		}
	}

	files, err := numberedFiles(mh.path)
	if err != nil {
		return err
	}

	for _, file := range files {
		m, err := mh.readMessage(file.name, file.n, snapshots, indexTime)
		if err != nil {
			logrus.WithError(err).WithField("file", file.name).Warn("Skipping unreadable message file")
			continue
		}

		for name, value := range table.labelsFor(file.n) {
			m.SetLabel(name, value)
		}

		mh.msgs = append(mh.msgs, m)

		if file.n > mh.highest {
			mh.highest = file.n
		}
	}

	return nil
}

// readMessage builds one message from a numbered file. A fresh-enough index
// snapshot yields a lazy message without opening the file at all; otherwise
// the header is parsed from the file, and the body is read eagerly only for
// files at or below the lazy threshold.
func (mh *MH) readMessage(name string, n int, snapshots map[string]*rfc822.Header, indexTime time.Time) (*message.Message, error) {
	full := filepath.Join(mh.path, name)

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}

	loc := message.Location{Filename: name, Number: n, Size: info.Size()}

	if snapshot, ok := snapshots[name]; ok && !info.ModTime().After(indexTime) {
		return message.NewNotParsed(loc, snapshot.Snapshot(), mh.cfg.IndexFields, mh.loadMessage, mh.registry), nil
	}

	if mh.cfg.LazyThreshold > 0 && info.Size() <= mh.cfg.LazyThreshold {
		header, body, err := mh.loadMessage(loc)
		if err != nil {
			return nil, err
		}

		m := message.NewFromParse(header, body, loc)

		if id, ok := header.Peek("Message-Id"); ok && id != "" {
			mh.registry.Register(m)
		}

		return m, nil
	}

	// Large file and no usable snapshot: parse the header fresh, defer the
	// body until someone asks for it.
	p, err := parser.Open(full)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	header, err := p.ReadHeader()
	if err != nil {
		return nil, err
	}

	var m *message.Message

	body := message.NewDelayedBody(parser.BodyInfo(header), contentLength(header), contentLines(header), func() (message.Body, error) {
		_, body, err := mh.loadMessage(m.Location())
		if err != nil {
			return nil, err
		}

		return body, nil
	})

	m = message.NewFromParse(header, body, loc)

	if id, ok := header.Peek("Message-Id"); ok && id != "" {
		mh.registry.Register(m)
	}

	return m, nil
}

// loadMessage reads the full content of a message from its current backing
// file. It is the load hook behind every lazy handle in this folder.
func (mh *MH) loadMessage(loc message.Location) (*rfc822.Header, message.Body, error) {
	p, err := parser.Open(filepath.Join(mh.path, loc.Filename))
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	return p.ReadContent()
}

func (mh *MH) unlink(m *message.Message) error {
	if name := m.Filename(); name != "" {
		if err := os.Remove(filepath.Join(mh.path, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	mh.registry.Forget(m)

	return nil
}

// place moves a surviving message to its new number. A new message is
// written out; a modified one is rewritten via temp file and rename so a
// crash mid-write never corrupts the old file; an unmodified message that
// changed number is just renamed.
func (mh *MH) place(m *message.Message, n int) error {
	newName := strconv.Itoa(n)
	oldName := m.Filename()

	switch {
	case oldName == "" || m.IsModified():
		if err := writeMessageFile(mh.path, newName, m, mh.cfg.WrapWidth); err != nil {
			return err
		}

		if oldName != "" && oldName != newName {
			if err := os.Remove(filepath.Join(mh.path, oldName)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}

	case oldName != newName:
		if err := os.Rename(filepath.Join(mh.path, oldName), filepath.Join(mh.path, newName)); err != nil {
			return err
		}
	}

	mh.registry.Forget(m)

	loc := m.Location()
	loc.Filename = newName
	loc.Number = n

	if info, err := os.Stat(filepath.Join(mh.path, newName)); err == nil {
		loc.Size = info.Size()
	}

	m.SetLocation(loc)
	m.ClearModified()

	mh.registry.RegisterLocation(m)

	return nil
}

func writeMessageFile(dir, name string, m *message.Message, wrapWidth int) error {
	tmp, err := os.CreateTemp(dir, ".msg-")
	if err != nil {
		return err
	}

	if wrapWidth > 0 {
		m.Head().SetWrapWidth(wrapWidth)
	}

	if err := m.Print(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

type numberedFile struct {
	name string
	n    int
}

// numberedFiles lists the message files: names that are positive decimal
// integers with no leading zeros, sorted numerically.
func numberedFiles(dir string) ([]numberedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []numberedFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if n, ok := messageNumber(entry.Name()); ok {
			files = append(files, numberedFile{name: entry.Name(), n: n})
		}
	}

	slices.SortFunc(files, func(a, b numberedFile) bool {
		return a.n < b.n
	})

	return files, nil
}

func highestNumber(dir string) (int, error) {
	files, err := numberedFiles(dir)
	if err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, nil
	}

	return files[len(files)-1].n, nil
}

func messageNumber(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n <= 0 || strconv.Itoa(n) != name {
		return 0, false
	}

	return n, true
}

func lockPath(path string, cfg folder.Config) string {
	return filepath.Clean(path) + cfg.LockSuffix
}

func writable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".probe-")
	if err != nil {
		return false
	}

	probe.Close()
	os.Remove(probe.Name())

	return true
}

func contentLength(header *rfc822.Header) int64 {
	n, err := strconv.ParseInt(header.Value("Content-Length"), 10, 64)
	if err != nil {
		return 0
	}

	return n
}

func contentLines(header *rfc822.Header) int {
	n, err := strconv.Atoi(header.Value("Lines"))
	if err != nil {
		return 0
	}

	return n
}
