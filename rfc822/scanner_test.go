package rfc822

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_ScanAll(t *testing.T) {
	const body = `this is the preamble
--simple boundary

first part
--simple boundary
Content-Type: text/plain

second part
--simple boundary--
this is the epilogue
`

	res, err := NewScanner(strings.NewReader(body), "simple boundary").ScanAll()
	require.NoError(t, err)

	assert.Equal(t, "this is the preamble", string(res.Preamble))
	require.Len(t, res.Parts, 2)
	assert.Equal(t, "\nfirst part", string(res.Parts[0].Data))
	assert.Equal(t, "Content-Type: text/plain\n\nsecond part", string(res.Parts[1].Data))
	assert.Equal(t, "this is the epilogue\n", string(res.Epilogue))
}

func TestScanner_Offsets(t *testing.T) {
	const body = "preamble\n--b\npart one\n--b\npart two\n--b--\n"

	res, err := NewScanner(strings.NewReader(body), "b").ScanAll()
	require.NoError(t, err)

	require.Len(t, res.Parts, 2)

	for _, part := range res.Parts {
		assert.Equal(t, string(part.Data), body[part.Offset:part.Offset+len(part.Data)])
	}
}

func TestScanner_AbsentPreambleAndEpilogue(t *testing.T) {
	const body = "--b\npart\n--b--\n"

	res, err := NewScanner(strings.NewReader(body), "b").ScanAll()
	require.NoError(t, err)

	// Empty preamble/epilogue normalize to absent, not empty.
	assert.Nil(t, res.Preamble)
	assert.Nil(t, res.Epilogue)
	require.Len(t, res.Parts, 1)
	assert.Equal(t, "part", string(res.Parts[0].Data))
}

func TestScanner_MissingTerminalBoundary(t *testing.T) {
	const body = "--b\nonly part, and the writer crashed"

	res, err := NewScanner(strings.NewReader(body), "b").ScanAll()
	require.NoError(t, err)

	require.Len(t, res.Parts, 1)
	assert.Equal(t, "only part, and the writer crashed", string(res.Parts[0].Data))
	assert.Nil(t, res.Epilogue)
}
