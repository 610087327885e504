package label

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// SeqVal is one inclusive run of message numbers.
type SeqVal struct {
	Begin, End int
}

func (seqval SeqVal) canCombine(val int) bool {
	return val >= seqval.Begin && val <= seqval.End+1
}

func (seqval SeqVal) String() string {
	if seqval.End > seqval.Begin {
		return fmt.Sprintf("%v-%v", seqval.Begin, seqval.End)
	}

	return strconv.Itoa(seqval.End)
}

// SeqSet is an ordered set of message-number runs. Its textual form is the
// labels-file grammar: space-separated single numbers or begin-end runs,
// e.g. "1-4032 4040 5000-5002".
type SeqSet []SeqVal

// NewSeqSet builds a run-length set from arbitrary message numbers,
// sorting and merging consecutive runs.
func NewSeqSet(set []int) SeqSet {
	set = slices.Clone(set)

	slices.Sort(set)

	var res SeqSet

	for _, val := range set {
		if n := len(res); n > 0 && res[n-1].canCombine(val) {
			if val > res[n-1].End {
				res[n-1].End = val
			}
		} else {
			res = append(res, SeqVal{Begin: val, End: val})
		}
	}

	return res
}

// ParseSeqSet parses the textual run form back into a set.
func ParseSeqSet(s string) (SeqSet, error) {
	var res SeqSet

	for _, token := range strings.Fields(s) {
		begin, end, isRange := strings.Cut(token, "-")

		b, err := strconv.Atoi(begin)
		if err != nil {
			return nil, fmt.Errorf("bad sequence token %q: %w", token, err)
		}

		e := b

		if isRange {
			if e, err = strconv.Atoi(end); err != nil {
				return nil, fmt.Errorf("bad sequence token %q: %w", token, err)
			}
		}

		if b <= 0 || e < b {
			return nil, fmt.Errorf("bad sequence token %q: not a positive run", token)
		}

		res = append(res, SeqVal{Begin: b, End: e})
	}

	return res, nil
}

func (set SeqSet) String() string {
	var res []string

	for _, val := range set {
		res = append(res, val.String())
	}

	return strings.Join(res, " ")
}

// Contains reports whether n falls inside any run.
func (set SeqSet) Contains(n int) bool {
	for _, val := range set {
		if n >= val.Begin && n <= val.End {
			return true
		}
	}

	return false
}

// Expand returns every member number in ascending order.
func (set SeqSet) Expand() []int {
	var res []int

	for _, val := range set {
		for n := val.Begin; n <= val.End; n++ {
			res = append(res, n)
		}
	}

	slices.Sort(res)

	return res
}
