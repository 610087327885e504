package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ReadHeader(t *testing.T) {
	p := New(strings.NewReader("From: a@b.c\nSubject: folded\n onto two lines\n\nbody\n"))

	header, err := p.ReadHeader()
	require.NoError(t, err)

	assert.Equal(t, "a@b.c", header.Value("From"))
	assert.Equal(t, "folded onto two lines", header.Value("Subject"))

	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"body"}, lines)
}

func TestParser_ReadHeaderDOSMode(t *testing.T) {
	p := New(strings.NewReader("From: a@b.c\r\nSubject: crlf\r\n\r\nbody line\r\nanother\r\n"))

	header, err := p.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, "crlf", header.Value("Subject"))

	// CR is stripped before LF once DOS mode is detected.
	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"body line", "another"}, lines)
}

func TestParser_MalformedHeaderLineEndsHeader(t *testing.T) {
	p := New(strings.NewReader("From: a@b.c\nbroken line without colon\nrest of body\n"))

	header, err := p.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", header.Value("From"))

	// The offending line is left for the body.
	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken line without colon", "rest of body"}, lines)
}

func TestParser_SeparatorStopsBody(t *testing.T) {
	p := New(strings.NewReader("first message body\nFrom alice Thu Aug  1 10:00:00 2024\nsecond\n"))

	p.PushSeparator("From ")

	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"first message body"}, lines)

	offset, line, ok, err := p.ReadSeparator()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(len("first message body\n")), offset)
	assert.True(t, strings.HasPrefix(line, "From alice"))
}

func TestParser_MboxQuotingRule(t *testing.T) {
	p := New(strings.NewReader(">From the start\n>>From nested\nplain line\n"))

	p.PushSeparator("From ")

	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)

	// One level of > quoting protects a literal From word.
	assert.Equal(t, []string{"From the start", ">From nested", "plain line"}, lines)
}

func TestParser_NoQuotingWithoutFromSeparator(t *testing.T) {
	p := New(strings.NewReader(">From kept verbatim\n"))

	lines, err := p.ReadBodyLines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{">From kept verbatim"}, lines)
}

func TestParser_ExpectLines(t *testing.T) {
	p := New(strings.NewReader("one\ntwo\nthree\n"))

	lines, err := p.ReadBodyLines(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestParser_BlockFastPath(t *testing.T) {
	p := New(strings.NewReader("0123456789tail"))

	s, err := p.ReadBodyString(10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", s)
	assert.Equal(t, int64(10), p.Offset())
}

func TestParser_FileChangedRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1")
	require.NoError(t, os.WriteFile(path, []byte("From: a@b.c\n\nbody\n"), 0o600))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ReadHeader()
	require.NoError(t, err)

	// Grow the file and backdate nothing; size alone must trip the guard.
	require.NoError(t, os.WriteFile(path, []byte("From: a@b.c\n\nbody grew longer\n"), 0o600))

	_, err = p.ReadBodyLines(0)
	require.ErrorIs(t, err, ErrFileChanged)
}

func TestParser_MtimeChangeRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1")
	content := []byte("From: a@b.c\n\nbody\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	_, err = p.ReadHeader()
	require.ErrorIs(t, err, ErrFileChanged)
}

func TestParser_SeparatorStack(t *testing.T) {
	p := New(strings.NewReader(""))

	p.PushSeparator("From ")
	p.PushSeparator("--inner")

	assert.Equal(t, "--inner", p.PopSeparator())
	assert.Equal(t, "From ", p.PopSeparator())
	assert.Equal(t, "", p.PopSeparator())
}
