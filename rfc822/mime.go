package rfc822

import (
	"mime"
	"strings"

	"github.com/google/uuid"
)

type MIMEType string

const (
	TextPlain            MIMEType = "text/plain"
	TextHTML             MIMEType = "text/html"
	MultipartMixed       MIMEType = "multipart/mixed"
	MultipartAlternative MIMEType = "multipart/alternative"
	MultipartRelated     MIMEType = "multipart/related"
	MultipartDigest      MIMEType = "multipart/digest"
	MessageRFC822        MIMEType = "message/rfc822"
)

func (t MIMEType) IsMultipart() bool {
	return strings.HasPrefix(string(t), "multipart/")
}

func (t MIMEType) IsNested() bool {
	return t == MessageRFC822
}

func ParseContentType(val string) (string, map[string]string, error) {
	if val == "" {
		val = string(TextPlain)
	}

	return mime.ParseMediaType(val)
}

// NewBoundary generates a fresh multipart boundary token.
func NewBoundary() string {
	return "boundary-" + uuid.NewString()
}
