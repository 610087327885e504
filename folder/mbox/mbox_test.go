package mbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/folder"
	"github.com/mailfold/mailfold/label"
	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/rfc822"
)

const sampleMailbox = `From alice@example.com Thu Aug  1 10:00:00 2024
From: alice@example.com
Subject: first
Status: RO

hello from alice

From bob@example.com Thu Aug  1 11:00:00 2024
From: bob@example.com
Subject: second
X-Status: F

>From a quoted line
plain line
`

func TestOpen_MissingMailbox(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, folder.ErrNoFolder)
}

func TestOpen_ParsesMessagesAndStatus(t *testing.T) {
	path := writeMailbox(t, sampleMailbox)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close(folder.Discard)

	msgs := f.Messages(folder.All)
	require.Len(t, msgs, 2)

	assert.Equal(t, "first", msgs[0].Head().Value("Subject"))
	assert.True(t, msgs[0].Labels().Has(label.Seen))
	assert.True(t, msgs[0].Labels().Has(label.Old))

	assert.True(t, msgs[1].Labels().Has(label.Flagged))
	assert.False(t, msgs[1].Labels().Has(label.Seen))

	// The mboxrd quoting is reversed on read.
	body, err := msgs[1].Body().String()
	require.NoError(t, err)
	assert.Contains(t, body, "From a quoted line")
	assert.NotContains(t, body, ">From a quoted line")
}

func TestWrite_RoundTripsQuotingAndStatus(t *testing.T) {
	path := writeMailbox(t, sampleMailbox)

	f, err := Open(path, folder.WithAccess(folder.ReadWrite))
	require.NoError(t, err)

	f.Messages(folder.All)[1].SetLabel(label.Replied, "1")

	require.NoError(t, f.Close(folder.Flush))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The quoted body line went back out quoted.
	assert.Contains(t, string(data), "\n>From a quoted line\n")

	f2, err := Open(path)
	require.NoError(t, err)
	defer f2.Close(folder.Discard)

	msgs := f2.Messages(folder.All)
	require.Len(t, msgs, 2)

	assert.True(t, msgs[0].Labels().Has(label.Seen))
	assert.True(t, msgs[1].Labels().Has(label.Replied))
	assert.True(t, msgs[1].Labels().Has(label.Flagged))

	body, err := msgs[1].Body().String()
	require.NoError(t, err)
	assert.Contains(t, body, "From a quoted line")
}

func TestWrite_PurgesDeleted(t *testing.T) {
	path := writeMailbox(t, sampleMailbox)

	f, err := Open(path, folder.WithAccess(folder.ReadWrite))
	require.NoError(t, err)

	f.Messages(folder.All)[0].Delete()

	require.NoError(t, f.Close(folder.Flush))

	f2, err := Open(path)
	require.NoError(t, err)
	defer f2.Close(folder.Discard)

	msgs := f2.Messages(folder.All)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second", msgs[0].Head().Value("Subject"))
	assert.Equal(t, 1, msgs[0].Number())
}

func TestAppend_Delivery(t *testing.T) {
	path := writeMailbox(t, sampleMailbox)

	header := rfc822.NewHeader()
	header.Set("From", "Carol <carol@example.com>")
	header.Set("Subject", "third")

	m := message.New(header, message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, "hi there\nFrom here it looks fine\n"))
	m.SetLabel(label.Seen, "1")

	require.NoError(t, Append(path, []*message.Message{m}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "From carol@example.com ")
	assert.Contains(t, string(data), "\n>From here it looks fine\n")

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close(folder.Discard)

	msgs := f.Messages(folder.All)
	require.Len(t, msgs, 3)
	assert.Equal(t, "third", msgs[2].Head().Value("Subject"))
	assert.True(t, msgs[2].Labels().Has(label.Seen))

	body, err := msgs[2].Body().String()
	require.NoError(t, err)
	assert.Contains(t, body, "From here it looks fine")
}

func TestAppend_CreatesMailbox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new")

	header := rfc822.NewHeader()
	header.Set("From", "a@b.c")
	header.Set("Subject", "only")

	require.NoError(t, Append(path, []*message.Message{
		message.New(header, message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, "body\n")),
	}))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close(folder.Discard)

	require.Len(t, f.Messages(folder.All), 1)
}

func TestReadOnly_MutationsRefused(t *testing.T) {
	path := writeMailbox(t, sampleMailbox)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close(folder.Discard)

	require.ErrorIs(t, f.Write(), folder.ErrReadOnly)
	require.ErrorIs(t, f.Add(message.NewDummy("x")), folder.ErrReadOnly)
}

func TestWrite_QuotingStableAcrossCycles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbox")

	header := rfc822.NewHeader()
	header.Set("From", "a@b.c")
	header.Set("Subject", "quoting")

	body := "From the top\n>From once\n>>From twice\nplain\n"

	require.NoError(t, Append(path, []*message.Message{
		message.New(header, message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, body)),
	}))

	// Reopen and flush a few times; the quoting depth must not creep.
	for cycle := 0; cycle < 3; cycle++ {
		f, err := Open(path, folder.WithAccess(folder.ReadWrite))
		require.NoError(t, err)

		msgs := f.Messages(folder.All)
		require.Len(t, msgs, 1)

		got, err := msgs[0].Body().String()
		require.NoError(t, err)
		assert.Contains(t, got, body, "cycle %d", cycle)
		assert.NotContains(t, got, ">From the top", "cycle %d", cycle)
		assert.NotContains(t, got, ">>From once", "cycle %d", cycle)

		msgs[0].Touch()

		require.NoError(t, f.Close(folder.Flush))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n>From the top\n>>From once\n>>>From twice\nplain\n", "cycle %d", cycle)
	}
}

func TestQuoteFromLines(t *testing.T) {
	in := "From the top\n>From quoted\nno change\n"
	out := string(quoteFromLines([]byte(in)))

	assert.Equal(t, ">From the top\n>>From quoted\nno change\n", out)
}

func writeMailbox(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mailbox")
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(content, "\r\n", "\n")), 0o600))

	return path
}
