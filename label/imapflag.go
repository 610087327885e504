package label

import (
	goimap "github.com/emersion/go-imap"
)

// The IMAP transports hand us system flags, not label names. These two maps
// bridge the vocabularies; labels with no IMAP equivalent (current, old)
// simply have none.
var labelToFlag = map[string]string{
	Seen:    goimap.SeenFlag,
	Deleted: goimap.DeletedFlag,
	Flagged: goimap.FlaggedFlag,
	Replied: goimap.AnsweredFlag,
	Draft:   goimap.DraftFlag,
}

var flagToLabel = map[string]string{
	goimap.SeenFlag:     Seen,
	goimap.DeletedFlag:  Deleted,
	goimap.FlaggedFlag:  Flagged,
	goimap.AnsweredFlag: Replied,
	goimap.DraftFlag:    Draft,
}

// IMAPFlags returns the IMAP system flags equivalent to the set's labels.
func IMAPFlags(set Set) []string {
	var flags []string

	for _, name := range set.Names() {
		if flag, ok := labelToFlag[name]; ok {
			flags = append(flags, flag)
		}
	}

	return flags
}

// FromIMAPFlags builds a label set from IMAP system flags, ignoring flags
// with no label equivalent.
func FromIMAPFlags(flags []string) Set {
	set := make(Set)

	for _, flag := range flags {
		if name, ok := flagToLabel[flag]; ok {
			set.Set(name, "1")
		}
	}

	return set
}
