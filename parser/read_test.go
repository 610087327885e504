package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/rfc822"
)

func TestReadFromStream_Simple(t *testing.T) {
	m, err := ReadFromStream(strings.NewReader("From: a@b.c\nSubject: hi\n\nhello there\n"))
	require.NoError(t, err)

	assert.Equal(t, "hi", m.Head().Value("Subject"))

	s, err := m.Body().String()
	require.NoError(t, err)
	assert.Equal(t, "hello there\n", s)
	assert.False(t, m.Body().IsMultipart())
}

func TestReadFromStream_Multipart(t *testing.T) {
	const raw = `From: a@b.c
Content-Type: multipart/mixed; boundary="b"

the preamble
--b
Content-Type: text/plain

part one
--b
Content-Type: text/html

<p>part two</p>
--b--
the epilogue
`

	m, err := ReadFromStream(strings.NewReader(raw))
	require.NoError(t, err)
	require.True(t, m.Body().IsMultipart())

	multipart, ok := m.Body().(*message.MultipartBody)
	require.True(t, ok)

	require.NotNil(t, multipart.Preamble())
	require.NotNil(t, multipart.Epilogue())
	require.Len(t, multipart.Parts(), 2)

	one, err := multipart.Part(0).Body().String()
	require.NoError(t, err)
	assert.Equal(t, "part one\n", one)

	assert.Equal(t, rfc822.TextHTML, multipart.Part(1).Body().Info().Type)
}

func TestReadFromStream_MultipartRoundTrip(t *testing.T) {
	const raw = `Content-Type: multipart/mixed; boundary="rt"

the preamble
--rt
Content-Type: text/plain

first part
--rt
Content-Type: text/plain

second part
--rt--
the epilogue
`

	m, err := ReadFromStream(strings.NewReader(raw))
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	require.NoError(t, m.Body().Print(buf))

	// Printing and re-parsing with the same boundary yields the same
	// structure and the same part payloads.
	res, err := rfc822.NewScanner(bytes.NewReader(buf.Bytes()), "rt").ScanAll()
	require.NoError(t, err)

	require.Len(t, res.Parts, 2)
	assert.Equal(t, "the preamble", string(res.Preamble))
	assert.Contains(t, string(res.Parts[0].Data), "first part")
	assert.Contains(t, string(res.Parts[1].Data), "second part")
	assert.Equal(t, "the epilogue\n", string(res.Epilogue))

	reparsed, err := ReadFromStream(bytes.NewReader(append([]byte("Content-Type: multipart/mixed; boundary=\"rt\"\n\n"), buf.Bytes()...)))
	require.NoError(t, err)

	again, ok := reparsed.Body().(*message.MultipartBody)
	require.True(t, ok)
	require.Len(t, again.Parts(), 2)

	for idx, part := range again.Parts() {
		wantBody, err := mustMultipart(t, m).Part(idx).Body().String()
		require.NoError(t, err)

		gotBody, err := part.Body().String()
		require.NoError(t, err)

		assert.Equal(t, wantBody, gotBody)
	}
}

func TestReadFromStream_Nested(t *testing.T) {
	const raw = `From: outer@example.com
Content-Type: message/rfc822

From: inner@example.com
Subject: the inner message

inner body
`

	m, err := ReadFromStream(strings.NewReader(raw))
	require.NoError(t, err)
	require.True(t, m.Body().IsNested())

	nested, ok := m.Body().(*message.NestedBody)
	require.True(t, ok)

	assert.Equal(t, "inner@example.com", nested.Inner().Head().Value("From"))

	s, err := nested.Inner().Body().String()
	require.NoError(t, err)
	assert.Equal(t, "inner body\n", s)
}

func TestReadFromStream_LargeBodySpools(t *testing.T) {
	payload := strings.Repeat("x", 4096)

	p := New(strings.NewReader("From: a@b.c\n\n" + payload + "\n"))
	p.SetSpoolThreshold(1024)

	m, err := p.ReadMessage()
	require.NoError(t, err)

	_, ok := m.Body().(*message.FileBody)
	assert.True(t, ok)

	s, err := m.Body().String()
	require.NoError(t, err)
	assert.Equal(t, payload+"\n", s)
}

func TestWriteMessage(t *testing.T) {
	header := rfc822.NewHeader()
	header.Set("From", "a@b.c")
	header.Set("Bcc", "hidden@example.com")

	m := message.New(header, message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, "payload\n"))

	full := new(bytes.Buffer)
	require.NoError(t, WriteMessage(full, m, WriteOptions{}))
	assert.Contains(t, full.String(), "From: a@b.c\n")
	assert.Contains(t, full.String(), "Bcc: hidden@example.com\n")
	assert.True(t, strings.HasSuffix(full.String(), "\n\npayload\n"))

	bodyOnly := new(bytes.Buffer)
	require.NoError(t, WriteMessage(bodyOnly, m, WriteOptions{BodyOnly: true}))
	assert.Equal(t, "payload\n", bodyOnly.String())

	undisclosed := new(bytes.Buffer)
	require.NoError(t, WriteMessage(undisclosed, m, WriteOptions{Undisclosed: true}))
	assert.NotContains(t, undisclosed.String(), "Bcc")
}

func mustMultipart(t *testing.T, m *message.Message) *message.MultipartBody {
	t.Helper()

	multipart, ok := m.Body().(*message.MultipartBody)
	require.True(t, ok)

	return multipart
}
