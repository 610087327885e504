// Package label implements the named flags a folder keeps per message
// (seen, deleted, current, ...) and the run-length numeric range codec used
// to persist them.
package label

import (
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Canonical label names. The on-disk labels file uses legacy tokens for two
// of these (cur for current, and seen is stored inverted as unseen); the
// codec translates, the rest of the library only ever sees canonical names.
const (
	Seen    = "seen"
	Deleted = "deleted"
	Flagged = "flagged"
	Replied = "replied"
	Draft   = "draft"
	Current = "current"
	Old     = "old"
)

// Set is a set of labels on one message. Label names are case-insensitive;
// each label carries a value (usually "1", but e.g. a deletion timestamp).
type Set map[string]string

// NewSet creates a label set with the given labels, each valued "1".
func NewSet(labels ...string) Set {
	set := make(Set)

	for _, name := range labels {
		set.set(name, "1")
	}

	return set
}

// Len returns the number of labels in the set.
func (set Set) Len() int {
	return len(set)
}

// Has reports whether the named label is present.
func (set Set) Has(name string) bool {
	_, ok := set[canonical(name)]
	return ok
}

// Get returns the value of the named label, if present.
func (set Set) Get(name string) (string, bool) {
	val, ok := set[canonical(name)]
	return val, ok
}

// Set adds or replaces a label in place.
func (set Set) Set(name, value string) {
	set.set(name, value)
}

// Clear removes a label in place.
func (set Set) Clear(name string) {
	delete(set, canonical(name))
}

// Names returns the sorted label names.
func (set Set) Names() []string {
	names := maps.Keys(set)

	slices.Sort(names)

	return names
}

// Equals reports whether both sets hold the same labels with the same values.
func (set Set) Equals(other Set) bool {
	if set.Len() != other.Len() {
		return false
	}

	for name, val := range set {
		if otherVal, ok := other[name]; !ok || otherVal != val {
			return false
		}
	}

	return true
}

// HasAny reports whether any of the given labels is present.
func (set Set) HasAny(names ...string) bool {
	return xslices.IndexFunc(names, func(name string) bool {
		return set.Has(name)
	}) >= 0
}

// Clone returns a hard copy of the set.
func (set Set) Clone() Set {
	return maps.Clone(set)
}

func (set Set) set(name, value string) {
	set[canonical(name)] = value
}

// canonical lowercases a label name and maps the legacy on-disk tokens to
// their canonical spellings, so a stored "cur" can never shadow "current".
func canonical(name string) string {
	name = strings.ToLower(name)

	switch name {
	case "cur":
		return Current
	default:
		return name
	}
}
