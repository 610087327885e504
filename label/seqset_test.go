package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqSet_String(t *testing.T) {
	assert.Equal(t, "", NewSeqSet(nil).String())
	assert.Equal(t, "1", NewSeqSet([]int{1}).String())
	assert.Equal(t, "1-3", NewSeqSet([]int{1, 2, 3}).String())
	assert.Equal(t, "1-3 5", NewSeqSet([]int{1, 2, 3, 5}).String())
	assert.Equal(t, "1-3 5-6 9", NewSeqSet([]int{9, 5, 1, 2, 3, 6}).String())
	assert.Equal(t, "1-4032", NewSeqSet(seq(1, 4032)).String())
}

func TestSeqSet_Duplicates(t *testing.T) {
	assert.Equal(t, "1-3", NewSeqSet([]int{3, 1, 2, 2, 3, 1}).String())
}

func TestSeqSet_RoundTrip(t *testing.T) {
	for _, set := range [][]int{
		{},
		{1},
		{7, 2, 9, 3, 1},
		{1, 2, 3, 4, 10, 11, 12, 40},
		seq(1, 1000),
	} {
		parsed, err := ParseSeqSet(NewSeqSet(set).String())
		require.NoError(t, err)

		assert.Equal(t, NewSeqSet(set).Expand(), parsed.Expand())
	}
}

func TestSeqSet_Parse(t *testing.T) {
	set, err := ParseSeqSet("1-4 8 10-12")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 8, 10, 11, 12}, set.Expand())
	assert.True(t, set.Contains(3))
	assert.True(t, set.Contains(8))
	assert.False(t, set.Contains(9))
}

func TestSeqSet_ParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"x", "1-x", "0", "5-2", "-3"} {
		_, err := ParseSeqSet(bad)
		assert.Error(t, err, bad)
	}
}

func seq(from, to int) []int {
	var res []int

	for n := from; n <= to; n++ {
		res = append(res, n)
	}

	return res
}
