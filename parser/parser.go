// Package parser implements the streaming reader/writer over a single
// message file or byte stream: header reads with continuation folding, body
// reads that honour mailbox-style separator lines, and the write side that
// serializes messages back out.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mailfold/mailfold/rfc822"
)

// ErrFileChanged is returned when the underlying file's size or mtime no
// longer matches what was recorded when the parser opened it. Reading on
// would risk torn data; the caller must re-open.
var ErrFileChanged = errors.New("parser: file changed since open")

// DefaultSpoolThreshold is the body size above which ReadContent spools to a
// temporary file instead of holding the payload in memory.
const DefaultSpoolThreshold int64 = 128 * 1024

var rxQuotedFrom = regexp.MustCompile(`^>+From `)

// Parser is a streaming reader over one underlying file or stream.
type Parser struct {
	r *bufio.Reader
	f *os.File

	path  string
	size  int64
	mtime time.Time

	offset  int64
	pending [][]byte

	seps []string

	dosMode bool
	sniffed bool

	spool int64
}

// New wraps an arbitrary stream. Stream parsers have no file-change guard.
func New(r io.Reader) *Parser {
	return &Parser{r: bufio.NewReader(r), spool: DefaultSpoolThreshold}
}

// Open opens a file for parsing, recording its size and mtime. Any later
// read notices external modification and refuses to proceed.
func Open(path string) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Parser{
		r:     bufio.NewReader(f),
		f:     f,
		path:  path,
		size:  fi.Size(),
		mtime: fi.ModTime(),
		spool: DefaultSpoolThreshold,
	}, nil
}

func (p *Parser) Close() error {
	if p.f == nil {
		return nil
	}

	return p.f.Close()
}

// Offset returns the current byte position in the stream.
func (p *Parser) Offset() int64 {
	return p.offset
}

// SetSpoolThreshold overrides the size above which bodies are spooled.
func (p *Parser) SetSpoolThreshold(n int64) {
	if n > 0 {
		p.spool = n
	}
}

// PushSeparator makes any line starting with token a structural separator
// for subsequent body reads. Separators nest; the innermost one wins.
func (p *Parser) PushSeparator(token string) {
	p.seps = append(p.seps, token)
}

// PopSeparator removes the innermost separator and returns it.
func (p *Parser) PopSeparator() string {
	if len(p.seps) == 0 {
		return ""
	}

	token := p.seps[len(p.seps)-1]
	p.seps = p.seps[:len(p.seps)-1]

	return token
}

func (p *Parser) currentSeparator() string {
	if len(p.seps) == 0 {
		return ""
	}

	return p.seps[len(p.seps)-1]
}

// ReadSeparator skips blank lines and consumes the next line if it is an
// active separator, returning its offset and content. A non-separator line
// is pushed back untouched.
func (p *Parser) ReadSeparator() (int64, string, bool, error) {
	token := p.currentSeparator()
	if token == "" {
		return 0, "", false, nil
	}

	for {
		start := p.offset

		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, "", false, nil
			}

			return 0, "", false, err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if bytes.HasPrefix(line, []byte(token)) {
			return start, string(bytes.TrimRight(line, "\r\n")), true, nil
		}

		p.unreadLine(line)

		return 0, "", false, nil
	}
}

// ReadHeader reads header lines up to and including the blank line and
// parses them into a complete header. A malformed line (no colon, not a
// continuation) ends the header: it is logged and pushed back for the body.
func (p *Parser) ReadHeader() (*rfc822.Header, error) {
	if err := p.checkUnchanged(); err != nil {
		return nil, err
	}

	var raw []byte

	for {
		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		trimmed := bytes.TrimRight(line, "\r\n")

		if len(trimmed) == 0 {
			break
		}

		if !bytes.ContainsRune(trimmed, ':') && trimmed[0] != ' ' && trimmed[0] != '\t' {
			logrus.WithField("line", string(trimmed)).Warn("Malformed header line; treating header as ended")
			p.unreadLine(line)

			break
		}

		raw = append(raw, trimmed...)
		raw = append(raw, '\n')
	}

	return rfc822.ParseHeader(raw), nil
}

// ReadBodyLines reads body lines up to the next active separator (or EOF),
// normalized: line terminators stripped, CR dropped in DOS mode, and one
// level of mbox From-quoting removed while a "From " separator is active.
// Positive expectLines caps the read.
func (p *Parser) ReadBodyLines(expectLines int) ([]string, error) {
	if err := p.checkUnchanged(); err != nil {
		return nil, err
	}

	var lines []string

	token := p.currentSeparator()

	for {
		if expectLines > 0 && len(lines) >= expectLines {
			break
		}

		line, err := p.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, err
		}

		if token != "" && bytes.HasPrefix(line, []byte(token)) {
			p.unreadLine(line)
			break
		}

		text := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")

		// The classic mbox quoting rule: while a "From " separator is
		// active, a leading > protects a literal From word.
		if strings.HasPrefix(token, "From ") && rxQuotedFrom.MatchString(text) {
			text = text[1:]
		}

		lines = append(lines, text)
	}

	return lines, nil
}

// ReadBodyString reads the body as one string. When the byte count is known
// and neither separator handling nor line-ending normalization applies, a
// single block copy is used.
func (p *Parser) ReadBodyString(expectBytes int64) (string, error) {
	if err := p.checkUnchanged(); err != nil {
		return "", err
	}

	if expectBytes > 0 && len(p.seps) == 0 && !p.dosMode && len(p.pending) == 0 {
		buf := make([]byte, expectBytes)

		n, err := io.ReadFull(p.r, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return "", err
		}

		p.offset += int64(n)

		return string(buf[:n]), nil
	}

	lines, err := p.ReadBodyLines(0)
	if err != nil {
		return "", err
	}

	if len(lines) == 0 {
		return "", nil
	}

	return strings.Join(lines, "\n") + "\n", nil
}

// readLine returns the next raw line including its terminator, honouring
// pushed-back lines and sniffing DOS mode from the first line seen.
func (p *Parser) readLine() ([]byte, error) {
	if n := len(p.pending); n > 0 {
		line := p.pending[n-1]
		p.pending = p.pending[:n-1]
		p.offset += int64(len(line))

		return line, nil
	}

	line, err := p.r.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return nil, err
	}

	p.offset += int64(len(line))

	if !p.sniffed {
		p.sniffed = true
		p.dosMode = bytes.HasSuffix(line, []byte("\r\n"))
	}

	return line, nil
}

func (p *Parser) unreadLine(line []byte) {
	p.pending = append(p.pending, line)
	p.offset -= int64(len(line))
}

// checkUnchanged refuses to read from a file whose size or mtime moved since
// the parser opened it.
func (p *Parser) checkUnchanged() error {
	if p.f == nil {
		return nil
	}

	fi, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("parser: %w", err)
	}

	if fi.Size() != p.size || !fi.ModTime().Equal(p.mtime) {
		return fmt.Errorf("%w: %s", ErrFileChanged, p.path)
	}

	return nil
}
