// Package message implements the logical message model every folder layout
// builds on: one header plus one body, lazily materialized placeholders, and
// the multi-representation body family.
package message

import (
	"io"
	"strings"

	"github.com/mailfold/mailfold/rfc822"
)

// BodyInfo is the content metadata a body carries: MIME type and parameters
// plus the transfer encoding its bytes are currently in.
type BodyInfo struct {
	Type     rfc822.MIMEType
	Params   map[string]string
	Transfer string
}

func (info BodyInfo) Charset() string {
	return info.Params["charset"]
}

func (info BodyInfo) Boundary() string {
	return info.Params["boundary"]
}

func (info BodyInfo) clone() BodyInfo {
	params := make(map[string]string, len(info.Params))

	for key, val := range info.Params {
		params[key] = val
	}

	return BodyInfo{Type: info.Type, Params: params, Transfer: info.Transfer}
}

func (info BodyInfo) withParam(key, val string) BodyInfo {
	res := info.clone()

	if res.Params == nil {
		res.Params = make(map[string]string)
	}

	res.Params[key] = val

	return res
}

// ContentType renders the Content-Type field body for this info.
func (info BodyInfo) ContentType() string {
	typ := info.Type
	if typ == "" {
		typ = rfc822.TextPlain
	}

	field := rfc822.NewField("Content-Type", string(typ))

	for _, key := range []string{"boundary", "charset", "name"} {
		if val, ok := info.Params[key]; ok {
			field.SetAttribute(key, val)
		}
	}

	return field.Body()
}

// Body is the payload of a message. Exactly one concrete representation is
// active at a time (lines, string, spooled file, multipart, nested message,
// or a not-yet-read byte range); all of them answer the same capability
// surface. Decoded and Encoded always return a new Body, never mutate in
// place, so readers holding the old representation stay valid.
type Body interface {
	Info() BodyInfo

	Lines() ([]string, error)
	String() (string, error)
	Reader() (io.ReadCloser, error)
	Size() (int64, error)
	LineCount() (int, error)
	Print(w io.Writer) error

	Decoded() (Body, error)
	Encoded(transfer, charset string) (Body, error)

	IsMultipart() bool
	IsNested() bool

	Clone() Body
}

// LinesBody holds the payload as text lines without line terminators.
type LinesBody struct {
	info  BodyInfo
	lines []string
}

func NewLinesBody(info BodyInfo, lines []string) *LinesBody {
	return &LinesBody{info: info, lines: lines}
}

func (b *LinesBody) Info() BodyInfo { return b.info }

func (b *LinesBody) Lines() ([]string, error) {
	return append([]string(nil), b.lines...), nil
}

func (b *LinesBody) String() (string, error) {
	if len(b.lines) == 0 {
		return "", nil
	}

	return strings.Join(b.lines, "\n") + "\n", nil
}

func (b *LinesBody) Reader() (io.ReadCloser, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(s)), nil
}

func (b *LinesBody) Size() (int64, error) {
	s, err := b.String()
	if err != nil {
		return 0, err
	}

	return int64(len(s)), nil
}

func (b *LinesBody) LineCount() (int, error) {
	return len(b.lines), nil
}

func (b *LinesBody) Print(w io.Writer) error {
	s, err := b.String()
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, s)

	return err
}

func (b *LinesBody) Decoded() (Body, error) {
	return decodeScalar(b, func(info BodyInfo, payload []byte) Body {
		return NewLinesBody(info, splitLines(payload))
	})
}

func (b *LinesBody) Encoded(transfer, charset string) (Body, error) {
	return encodeScalar(b, transfer, charset, func(info BodyInfo, payload []byte) Body {
		return NewLinesBody(info, splitLines(payload))
	})
}

func (b *LinesBody) IsMultipart() bool { return false }
func (b *LinesBody) IsNested() bool    { return false }

func (b *LinesBody) Clone() Body {
	return NewLinesBody(b.info.clone(), append([]string(nil), b.lines...))
}

// StringBody holds the payload as a single scalar.
type StringBody struct {
	info BodyInfo
	s    string
}

func NewStringBody(info BodyInfo, s string) *StringBody {
	return &StringBody{info: info, s: s}
}

func (b *StringBody) Info() BodyInfo { return b.info }

func (b *StringBody) Lines() ([]string, error) {
	return splitLines([]byte(b.s)), nil
}

func (b *StringBody) String() (string, error) {
	return b.s, nil
}

func (b *StringBody) Reader() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(b.s)), nil
}

func (b *StringBody) Size() (int64, error) {
	return int64(len(b.s)), nil
}

func (b *StringBody) LineCount() (int, error) {
	return len(splitLines([]byte(b.s))), nil
}

func (b *StringBody) Print(w io.Writer) error {
	_, err := io.WriteString(w, b.s)
	return err
}

func (b *StringBody) Decoded() (Body, error) {
	return decodeScalar(b, func(info BodyInfo, payload []byte) Body {
		return NewStringBody(info, string(payload))
	})
}

func (b *StringBody) Encoded(transfer, charset string) (Body, error) {
	return encodeScalar(b, transfer, charset, func(info BodyInfo, payload []byte) Body {
		return NewStringBody(info, string(payload))
	})
}

func (b *StringBody) IsMultipart() bool { return false }
func (b *StringBody) IsNested() bool    { return false }

func (b *StringBody) Clone() Body {
	return NewStringBody(b.info.clone(), b.s)
}

// decodeScalar removes the transfer encoding, then converts the charset to
// UTF-8, producing a fresh body through rebuild.
func decodeScalar(b Body, rebuild func(BodyInfo, []byte) Body) (Body, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	info := b.Info()

	payload, err := rfc822.DecodeTransfer(info.Transfer, []byte(s))
	if err != nil {
		return nil, err
	}

	payload, err = rfc822.DecodeCharset(payload, info.Charset())
	if err != nil {
		return nil, err
	}

	newInfo := info.clone()
	newInfo.Transfer = ""

	if info.Charset() != "" {
		newInfo = newInfo.withParam("charset", "utf-8")
	}

	return rebuild(newInfo, payload), nil
}

// encodeScalar converts the charset first, then applies the transfer
// encoding, so that Encoded(Decoded(x)) round-trips.
func encodeScalar(b Body, transfer, charset string, rebuild func(BodyInfo, []byte) Body) (Body, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	payload := []byte(s)

	if charset != "" {
		if payload, err = rfc822.EncodeCharset(payload, charset); err != nil {
			return nil, err
		}
	}

	if payload, err = rfc822.EncodeTransfer(transfer, payload); err != nil {
		return nil, err
	}

	newInfo := b.Info().clone()
	newInfo.Transfer = transfer

	if charset != "" {
		newInfo = newInfo.withParam("charset", charset)
	}

	return rebuild(newInfo, payload), nil
}

func splitLines(b []byte) []string {
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}

	lines := strings.Split(s, "\n")

	for idx, line := range lines {
		lines[idx] = strings.TrimSuffix(line, "\r")
	}

	return lines
}
