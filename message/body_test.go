package message

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/rfc822"
)

func plainInfo() BodyInfo {
	return BodyInfo{Type: rfc822.TextPlain, Params: map[string]string{"charset": "utf-8"}}
}

func TestLinesBody(t *testing.T) {
	body := NewLinesBody(plainInfo(), []string{"one", "two", "three"})

	s, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", s)

	count, err := body.LineCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	size, err := body.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(s)), size)

	assert.False(t, body.IsMultipart())
	assert.False(t, body.IsNested())
}

func TestStringBody_Lines(t *testing.T) {
	body := NewStringBody(plainInfo(), "one\r\ntwo\r\n")

	lines, err := body.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestBody_DecodeProducesNewBody(t *testing.T) {
	payload := "pâté and crème\n"

	encoded, err := rfc822.EncodeTransfer("base64", []byte(payload))
	require.NoError(t, err)

	info := plainInfo()
	info.Transfer = "base64"

	body := NewStringBody(info, string(encoded))

	decoded, err := body.Decoded()
	require.NoError(t, err)

	// The original body is untouched; decode never mutates in place.
	original, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, string(encoded), original)

	s, err := decoded.String()
	require.NoError(t, err)
	assert.Equal(t, payload, s)
	assert.Equal(t, "", decoded.Info().Transfer)
}

func TestBody_EncodeDecodeRoundTrip(t *testing.T) {
	payload := "line one\nline two with trailing space \n"

	body := NewStringBody(plainInfo(), payload)

	for _, transfer := range []string{"base64", "quoted-printable", "7bit"} {
		encoded, err := body.Encoded(transfer, "")
		require.NoError(t, err)
		assert.Equal(t, transfer, encoded.Info().Transfer)

		decoded, err := encoded.Decoded()
		require.NoError(t, err)

		s, err := decoded.String()
		require.NoError(t, err)
		assert.Equal(t, payload, s, transfer)
	}
}

func TestFileBody_SpoolAndRead(t *testing.T) {
	body, err := NewFileBody(plainInfo(), strings.NewReader("spooled\ncontent\n"))
	require.NoError(t, err)
	defer func() { require.NoError(t, body.Remove()) }()

	s, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "spooled\ncontent\n", s)

	size, err := body.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(16), size)

	r, err := body.Reader()
	require.NoError(t, err)
	defer r.Close()

	read, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "spooled\ncontent\n", string(read))
}

func TestFileBody_MissingFileDegradesToEmpty(t *testing.T) {
	body, err := NewFileBody(plainInfo(), strings.NewReader("doomed"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(body.Path()))

	s, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestMultipartBody_Print(t *testing.T) {
	info := BodyInfo{Type: rfc822.MultipartMixed, Params: map[string]string{"boundary": "b"}}

	part1 := New(rfc822.NewHeader(), NewStringBody(plainInfo(), "first\n"))
	part2 := New(rfc822.NewHeader(), NewStringBody(plainInfo(), "second\n"))

	body := NewMultipartBody(info,
		NewStringBody(BodyInfo{}, "the preamble\n"),
		[]*Message{part1, part2},
		NewStringBody(BodyInfo{}, "the epilogue\n"),
	)

	buf := new(bytes.Buffer)
	require.NoError(t, body.Print(buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "the preamble\n"))
	assert.Equal(t, 2, strings.Count(out, "--b\n"))
	assert.Equal(t, 1, strings.Count(out, "--b--\n"))
	assert.True(t, strings.HasSuffix(out, "the epilogue\n"))
}

func TestMultipartBody_GeneratesBoundary(t *testing.T) {
	body := NewMultipartBody(BodyInfo{Type: rfc822.MultipartMixed}, nil, nil, nil)

	assert.True(t, strings.HasPrefix(body.Boundary(), "boundary-"))
}

func TestDelayedBody_LoadsOnce(t *testing.T) {
	var loads int

	body := NewDelayedBody(plainInfo(), 6, 1, func() (Body, error) {
		loads++
		return NewStringBody(plainInfo(), "lazy!\n"), nil
	})

	// Hints answer without loading.
	size, err := body.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)
	assert.False(t, body.IsLoaded())
	assert.Equal(t, 0, loads)

	s, err := body.String()
	require.NoError(t, err)
	assert.Equal(t, "lazy!\n", s)
	assert.True(t, body.IsLoaded())

	_, err = body.Lines()
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
}
