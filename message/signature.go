package message

import (
	"errors"
	"strings"
)

// ErrLineRewrite is the panic value raised when a line-rewriting operation is
// requested on a multipart or nested body; those have no lines of their own.
var ErrLineRewrite = errors.New("message: line rewrite on multipart or nested body")

// DefaultSignatureSeparator is the conventional "-- " signature delimiter.
const DefaultSignatureSeparator = "-- "

// DefaultSignatureMaxLines bounds how far from the end of the body the
// separator is searched for.
const DefaultSignatureMaxLines = 10

// SignatureOptions tunes SplitSignature. A zero value means the defaults.
type SignatureOptions struct {
	// Separator is the exact separator line. Ignored when Match is set.
	Separator string

	// MaxLines is the scan window, counted from the end of the body.
	MaxLines int

	// Match, when set, replaces the exact separator comparison.
	Match func(line string) bool
}

// SplitSignature scans the body's last MaxLines lines for a signature
// separator. When found, it returns the content above the separator and the
// signature (including the separator line). When not found within the
// window, the original body is returned unchanged with found == false: the
// split is all or nothing, never partial.
func SplitSignature(b Body, opts SignatureOptions) (content, signature Body, found bool, err error) {
	if b.IsMultipart() || b.IsNested() {
		panic(ErrLineRewrite)
	}

	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultSignatureMaxLines
	}

	match := opts.Match
	if match == nil {
		separator := opts.Separator
		if separator == "" {
			separator = DefaultSignatureSeparator
		}

		match = func(line string) bool {
			return line == separator || strings.TrimRight(line, " ") == strings.TrimRight(separator, " ")
		}
	}

	lines, err := b.Lines()
	if err != nil {
		return nil, nil, false, err
	}

	first := len(lines) - opts.MaxLines
	if first < 0 {
		first = 0
	}

	for idx := len(lines) - 1; idx >= first; idx-- {
		if !match(lines[idx]) {
			continue
		}

		info := b.Info()

		return NewLinesBody(info.clone(), append([]string(nil), lines[:idx]...)),
			NewLinesBody(info.clone(), append([]string(nil), lines[idx:]...)),
			true, nil
	}

	return b, nil, false, nil
}
