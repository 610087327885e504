package message

import (
	"bytes"
	"io"
	"strings"

	"github.com/mailfold/mailfold/rfc822"
)

// MultipartBody is an ordered list of child messages between an optional
// preamble and epilogue, delimited by a boundary token. The children are
// owned by the part list; the ownership graph is a tree, never a cycle.
type MultipartBody struct {
	info     BodyInfo
	preamble Body
	parts    []*Message
	epilogue Body
}

// NewMultipartBody builds a multipart body. A nil preamble or epilogue means
// absent. An empty boundary gets a generated one.
func NewMultipartBody(info BodyInfo, preamble Body, parts []*Message, epilogue Body) *MultipartBody {
	if info.Type == "" {
		info.Type = rfc822.MultipartMixed
	}

	if info.Boundary() == "" {
		info = info.withParam("boundary", rfc822.NewBoundary())
	}

	return &MultipartBody{info: info, preamble: preamble, parts: parts, epilogue: epilogue}
}

func (b *MultipartBody) Info() BodyInfo { return b.info }

func (b *MultipartBody) Boundary() string { return b.info.Boundary() }

func (b *MultipartBody) Preamble() Body { return b.preamble }

func (b *MultipartBody) Epilogue() Body { return b.epilogue }

func (b *MultipartBody) Parts() []*Message {
	return append([]*Message(nil), b.parts...)
}

func (b *MultipartBody) Part(idx int) *Message {
	return b.parts[idx]
}

func (b *MultipartBody) AddPart(m *Message) {
	b.parts = append(b.parts, m)
}

func (b *MultipartBody) Lines() ([]string, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return splitLines([]byte(s)), nil
}

func (b *MultipartBody) String() (string, error) {
	buf := new(bytes.Buffer)

	if err := b.Print(buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (b *MultipartBody) Reader() (io.ReadCloser, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(s)), nil
}

func (b *MultipartBody) Size() (int64, error) {
	s, err := b.String()
	if err != nil {
		return 0, err
	}

	return int64(len(s)), nil
}

func (b *MultipartBody) LineCount() (int, error) {
	lines, err := b.Lines()
	if err != nil {
		return 0, err
	}

	return len(lines), nil
}

func (b *MultipartBody) Print(w io.Writer) error {
	boundary := b.Boundary()

	// The newline before each boundary line belongs to the delimiter, so
	// every chunk is written with exactly one trailing newline regardless of
	// how its content ends. That keeps print-then-rescan byte-identical.
	writeChunk := func(print func(io.Writer) error) error {
		buf := new(bytes.Buffer)

		if err := print(buf); err != nil {
			return err
		}

		chunk := strings.TrimSuffix(buf.String(), "\n")

		_, err := io.WriteString(w, chunk+"\n")

		return err
	}

	if b.preamble != nil {
		if err := writeChunk(b.preamble.Print); err != nil {
			return err
		}
	}

	for _, part := range b.parts {
		if _, err := io.WriteString(w, "--"+boundary+"\n"); err != nil {
			return err
		}

		if err := writeChunk(part.Print); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, "--"+boundary+"--\n"); err != nil {
		return err
	}

	if b.epilogue != nil {
		if err := b.epilogue.Print(w); err != nil {
			return err
		}
	}

	return nil
}

// Decoded is the identity for multiparts: transfer encodings apply to leaf
// parts, not to the container.
func (b *MultipartBody) Decoded() (Body, error) {
	return b.Clone(), nil
}

func (b *MultipartBody) Encoded(string, string) (Body, error) {
	return b.Clone(), nil
}

func (b *MultipartBody) IsMultipart() bool { return true }
func (b *MultipartBody) IsNested() bool    { return false }

func (b *MultipartBody) Clone() Body {
	clone := &MultipartBody{info: b.info.clone()}

	if b.preamble != nil {
		clone.preamble = b.preamble.Clone()
	}

	if b.epilogue != nil {
		clone.epilogue = b.epilogue.Clone()
	}

	for _, part := range b.parts {
		clone.parts = append(clone.parts, part.Clone())
	}

	return clone
}

// NestedBody wraps exactly one child message (message/rfc822).
type NestedBody struct {
	info  BodyInfo
	inner *Message
}

func NewNestedBody(info BodyInfo, inner *Message) *NestedBody {
	if info.Type == "" {
		info.Type = rfc822.MessageRFC822
	}

	return &NestedBody{info: info, inner: inner}
}

func (b *NestedBody) Info() BodyInfo { return b.info }

func (b *NestedBody) Inner() *Message { return b.inner }

func (b *NestedBody) Lines() ([]string, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return splitLines([]byte(s)), nil
}

func (b *NestedBody) String() (string, error) {
	buf := new(bytes.Buffer)

	if err := b.Print(buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (b *NestedBody) Reader() (io.ReadCloser, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(s)), nil
}

func (b *NestedBody) Size() (int64, error) {
	s, err := b.String()
	if err != nil {
		return 0, err
	}

	return int64(len(s)), nil
}

func (b *NestedBody) LineCount() (int, error) {
	lines, err := b.Lines()
	if err != nil {
		return 0, err
	}

	return len(lines), nil
}

func (b *NestedBody) Print(w io.Writer) error {
	return b.inner.Print(w)
}

func (b *NestedBody) Decoded() (Body, error) {
	return b.Clone(), nil
}

func (b *NestedBody) Encoded(string, string) (Body, error) {
	return b.Clone(), nil
}

func (b *NestedBody) IsMultipart() bool { return false }
func (b *NestedBody) IsNested() bool    { return true }

func (b *NestedBody) Clone() Body {
	return &NestedBody{info: b.info.clone(), inner: b.inner.Clone()}
}
