package rfc822

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Codec is one content-transfer-encoding: a named encoder/decoder pair.
// Encoding then decoding is byte-identical for every registered codec.
type Codec struct {
	Name   string
	Encode func([]byte) ([]byte, error)
	Decode func([]byte) ([]byte, error)
}

var identity = func(b []byte) ([]byte, error) { return b, nil }

var codecs = map[string]Codec{
	"7bit":   {Name: "7bit", Encode: identity, Decode: identity},
	"8bit":   {Name: "8bit", Encode: identity, Decode: identity},
	"binary": {Name: "binary", Encode: identity, Decode: identity},
	"base64": {Name: "base64", Encode: encodeBase64, Decode: decodeBase64},
	"quoted-printable": {
		Name:   "quoted-printable",
		Encode: encodeQuotedPrintable,
		Decode: decodeQuotedPrintable,
	},
}

// CodecFor looks up the codec for a transfer-encoding name. The empty name
// means 7bit. Unknown encodings are reported so callers can warn and pass
// bytes through unmodified.
func CodecFor(name string) (Codec, bool) {
	if name == "" {
		name = "7bit"
	}

	codec, ok := codecs[strings.ToLower(name)]

	return codec, ok
}

// EncodeTransfer applies the named transfer encoding. Unknown encodings warn
// and pass through.
func EncodeTransfer(name string, b []byte) ([]byte, error) {
	codec, ok := CodecFor(name)
	if !ok {
		logrus.WithField("encoding", name).Warn("Unknown transfer encoding; passing bytes through")
		return b, nil
	}

	return codec.Encode(b)
}

// DecodeTransfer removes the named transfer encoding. Unknown encodings warn
// and pass through.
func DecodeTransfer(name string, b []byte) ([]byte, error) {
	codec, ok := CodecFor(name)
	if !ok {
		logrus.WithField("encoding", name).Warn("Unknown transfer encoding; passing bytes through")
		return b, nil
	}

	return codec.Decode(b)
}

// DecodeCharset converts bytes in the named charset to UTF-8. An unknown or
// empty charset warns and passes the bytes through unmodified.
func DecodeCharset(b []byte, charset string) ([]byte, error) {
	enc := lookupCharset(charset)
	if enc == nil {
		return b, nil
	}

	res, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// EncodeCharset converts UTF-8 bytes into the named charset.
func EncodeCharset(b []byte, charset string) ([]byte, error) {
	enc := lookupCharset(charset)
	if enc == nil {
		return b, nil
	}

	res, _, err := transform.Bytes(enc.NewEncoder(), b)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func lookupCharset(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "", "utf-8", "us-ascii":
		return nil
	}

	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		logrus.WithField("charset", charset).Warn("Unknown charset; passing bytes through")
		return nil
	}

	return enc
}

const base64LineLength = 76

func encodeBase64(b []byte) ([]byte, error) {
	encoded := base64.StdEncoding.EncodeToString(b)

	var res bytes.Buffer

	for len(encoded) > base64LineLength {
		res.WriteString(encoded[:base64LineLength])
		res.WriteString("\n")
		encoded = encoded[base64LineLength:]
	}

	res.WriteString(encoded)
	res.WriteString("\n")

	return res.Bytes(), nil
}

func decodeBase64(b []byte) ([]byte, error) {
	clean := bytes.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}

		return r
	}, b)

	res := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))

	n, err := base64.StdEncoding.Decode(res, clean)
	if err != nil {
		return nil, err
	}

	return res[:n], nil
}

func encodeQuotedPrintable(b []byte) ([]byte, error) {
	var res bytes.Buffer

	w := quotedprintable.NewWriter(&res)

	if _, err := w.Write(b); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return res.Bytes(), nil
}

func decodeQuotedPrintable(b []byte) ([]byte, error) {
	res, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}

	// The writer emits CRLF on the wire; bodies are LF-normalized, so fold
	// the CR back out or decode(encode(x)) would grow a CR per line.
	return bytes.ReplaceAll(res, []byte("\r\n"), []byte("\n")), nil
}
