package mh

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/rfc822"
)

// filenameField is the synthetic field the index adds to each header
// snapshot, recording which message file the snapshot came from. It is
// stripped again on read and never appears on a live header.
const filenameField = "X-MailBox-Filename"

// readIndex reads the header index cache: a sequence of header snapshots,
// each terminated by a blank line. It returns the snapshots keyed by message
// filename plus the index file's own mtime, which bounds how fresh the
// snapshots are. A missing index is an empty cache.
func readIndex(path string) (map[string]*rfc822.Header, time.Time, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, time.Time{}, nil
	} else if err != nil {
		return nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, err
	}

	snapshots := make(map[string]*rfc822.Header)

	var block bytes.Buffer

	flush := func() {
		if block.Len() == 0 {
			return
		}

		header := rfc822.ParseHeader(block.Bytes())
		block.Reset()

		filename := header.Value(filenameField)
		if filename == "" {
			return
		}

		header.Del(filenameField)

		snapshots[filename] = header
	}

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}

		block.WriteString(line)
		block.WriteByte('\n')
	}

	flush()

	return snapshots, info.ModTime(), scanner.Err()
}

// writeIndex rewrites the index from the messages' current header snapshots,
// via a temp file and rename. Lazily loaded messages contribute their cached
// snapshot; nothing is parsed to write the index.
func writeIndex(path string, msgs []*message.Message) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-")
	if err != nil {
		return err
	}

	for _, m := range msgs {
		if err := writeIndexEntry(tmp, m); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())

			return err
		}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func writeIndexEntry(w io.Writer, m *message.Message) error {
	fields := m.Head().Snapshot()

	entry := make([]*rfc822.Field, 0, len(fields)+1)

	for _, field := range fields {
		entry = append(entry, field.Clone())
	}

	entry = append(entry, rfc822.NewField(filenameField, m.Filename()))

	if err := rfc822.NewHeaderFromFields(entry).Print(w); err != nil {
		return err
	}

	_, err := io.WriteString(w, "\n")

	return err
}
