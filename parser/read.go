package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mailfold/mailfold/message"
	"github.com/mailfold/mailfold/rfc822"
)

// ReadFromStream parses one complete message from a byte stream. This is the
// interface the network transports consume.
func ReadFromStream(r io.Reader) (*message.Message, error) {
	return New(r).ReadMessage()
}

// ReadMessage reads one message (header, then body up to the next active
// separator or EOF) and assembles the message object.
func (p *Parser) ReadMessage() (*message.Message, error) {
	header, body, err := p.ReadContent()
	if err != nil {
		return nil, err
	}

	size, _ := body.Size()

	return message.NewFromParse(header, body, message.Location{Size: size}), nil
}

// ReadContent reads one message and returns its parts without wrapping them.
// The folder stores use this to materialize lazily loaded messages.
func (p *Parser) ReadContent() (*rfc822.Header, message.Body, error) {
	header, err := p.ReadHeader()
	if err != nil {
		return nil, nil, err
	}

	body, err := p.readBody(header)
	if err != nil {
		return nil, nil, err
	}

	return header, body, nil
}

func (p *Parser) readBody(header *rfc822.Header) (message.Body, error) {
	info := BodyInfo(header)

	switch {
	case info.Type.IsMultipart():
		return p.readMultipart(info)

	case info.Type.IsNested():
		return p.readNested(info)

	default:
		return p.readScalar(info, header)
	}
}

func (p *Parser) readScalar(info message.BodyInfo, header *rfc822.Header) (message.Body, error) {
	expectBytes := headerInt64(header, "Content-Length")

	s, err := p.ReadBodyString(expectBytes)
	if err != nil {
		return nil, err
	}

	if int64(len(s)) > p.spool {
		return message.NewFileBody(info, strings.NewReader(s))
	}

	return message.NewStringBody(info, s), nil
}

func (p *Parser) readMultipart(info message.BodyInfo) (message.Body, error) {
	boundary := info.Boundary()
	if boundary == "" {
		logrus.Warn("Multipart body without boundary parameter; reading it flat")
		s, err := p.ReadBodyString(0)
		if err != nil {
			return nil, err
		}

		return message.NewStringBody(info, s), nil
	}

	// The raw body, still containing the boundary lines, runs to the next
	// enclosing separator.
	raw, err := p.ReadBodyString(0)
	if err != nil {
		return nil, err
	}

	res, err := rfc822.NewScanner(strings.NewReader(raw), boundary).ScanAll()
	if err != nil {
		return nil, err
	}

	var preamble, epilogue message.Body

	if res.Preamble != nil {
		preamble = message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, string(res.Preamble))
	}

	if res.Epilogue != nil {
		epilogue = message.NewStringBody(message.BodyInfo{Type: rfc822.TextPlain}, string(res.Epilogue))
	}

	var parts []*message.Message

	for _, part := range res.Parts {
		sub := New(bytes.NewReader(part.Data))
		sub.SetSpoolThreshold(p.spool)

		m, err := sub.ReadMessage()
		if err != nil {
			return nil, err
		}

		parts = append(parts, m)
	}

	return message.NewMultipartBody(info, preamble, parts, epilogue), nil
}

func (p *Parser) readNested(info message.BodyInfo) (message.Body, error) {
	raw, err := p.ReadBodyString(0)
	if err != nil {
		return nil, err
	}

	sub := New(strings.NewReader(raw))
	sub.SetSpoolThreshold(p.spool)

	inner, err := sub.ReadMessage()
	if err != nil {
		return nil, err
	}

	return message.NewNestedBody(info, inner), nil
}

// BodyInfo derives a body's content info from its header. An unparseable
// Content-Type downgrades to text/plain with a warning.
func BodyInfo(header *rfc822.Header) message.BodyInfo {
	typ, params, err := rfc822.ParseContentType(header.Value("Content-Type"))
	if err != nil {
		logrus.WithError(err).Warn("Unparseable Content-Type; treating as text/plain")

		typ = string(rfc822.TextPlain)
		params = nil
	}

	return message.BodyInfo{
		Type:     rfc822.MIMEType(typ),
		Params:   params,
		Transfer: strings.ToLower(header.Value("Content-Transfer-Encoding")),
	}
}

func headerInt64(header *rfc822.Header, name string) int64 {
	val := header.Value(name)
	if val == "" {
		return 0
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return n
}
