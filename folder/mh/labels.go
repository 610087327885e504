package mh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/mailfold/mailfold/label"
	"github.com/mailfold/mailfold/message"
)

// Legacy tokens used by the on-disk labels file. "cur" spells "current", and
// seen is stored inverted: the file lists the unseen messages, everything
// else is seen.
const (
	curToken    = "cur"
	unseenToken = "unseen"
)

// labelTable maps a label name to the message numbers carrying it. Names are
// canonical except unseenToken, which only exists at the codec boundary.
type labelTable map[string]label.SeqSet

// readLabelTable reads the labels file. A missing file is an empty table;
// malformed lines are skipped with a warning, never fatal.
func readLabelTable(path string) (labelTable, error) {
	table := make(labelTable)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return table, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, ranges, ok := strings.Cut(line, ":")
		if !ok {
			logrus.WithField("line", line).Warn("Skipping malformed labels line")
			continue
		}

		seq, err := label.ParseSeqSet(ranges)
		if err != nil {
			logrus.WithError(err).WithField("label", name).Warn("Skipping unparseable label ranges")
			continue
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == curToken {
			name = label.Current
		}

		if have, ok := table[name]; ok {
			seq = label.NewSeqSet(append(have.Expand(), seq.Expand()...))
		}

		table[name] = seq
	}

	return table, scanner.Err()
}

// labelsFor derives one message's label set from the table. Seen is the
// default; membership in the unseen runs withholds it.
func (table labelTable) labelsFor(n int) label.Set {
	set := label.NewSet()

	for name, seq := range table {
		if name == unseenToken {
			continue
		}

		if seq.Contains(n) {
			set.Set(name, "1")
		}
	}

	if unseen, ok := table[unseenToken]; !ok || !unseen.Contains(n) {
		set.Set(label.Seen, "1")
	}

	return set
}

// add merges one message's labels into the table under its number.
func (table labelTable) add(m *message.Message) {
	n := m.Number()

	for _, name := range m.Labels().Names() {
		// Seen is stored inverted; the deletion mark is in-memory state
		// that never reaches disk. The unseen token is reserved by the
		// file grammar, so a user label spelled that way is not persisted
		// rather than letting it flip seen state on the next read.
		if name == label.Seen || name == label.Deleted || name == unseenToken {
			continue
		}

		table.addNumber(name, n)
	}

	if !m.Labels().Has(label.Seen) {
		table.addNumber(unseenToken, n)
	}
}

func (table labelTable) addNumber(name string, n int) {
	table[name] = label.NewSeqSet(append(table[name].Expand(), n))
}

// buildLabelTable recomputes the table from the surviving messages.
func buildLabelTable(msgs []*message.Message) labelTable {
	table := make(labelTable)

	for _, m := range msgs {
		table.add(m)
	}

	return table
}

// writeLabelTable rewrites the labels file via a temp file and rename, one
// "name: ranges" line per label in sorted name order.
func writeLabelTable(path string, table labelTable) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".labels-")
	if err != nil {
		return err
	}

	names := maps.Keys(table)

	slices.Sort(names)

	for _, name := range names {
		seq := table[name]
		if len(seq) == 0 {
			continue
		}

		stored := name
		if stored == label.Current {
			stored = curToken
		}

		if _, err := fmt.Fprintf(tmp, "%s: %s\n", stored, seq); err != nil {
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
