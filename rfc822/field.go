package rfc822

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrMalformedField = errors.New("malformed header field: missing colon")

// structuredFields are the field names whose bodies carry ;-delimited
// attributes and whose folding prefers structural separators. Unstructured
// fields (Subject, ...) never have their content interpreted.
var structuredFields = map[string]struct{}{
	"from":                      {},
	"sender":                    {},
	"reply-to":                  {},
	"to":                        {},
	"cc":                        {},
	"bcc":                       {},
	"date":                      {},
	"message-id":                {},
	"in-reply-to":               {},
	"references":                {},
	"received":                  {},
	"mime-version":              {},
	"content-type":              {},
	"content-disposition":       {},
	"content-transfer-encoding": {},
	"resent-from":               {},
	"resent-to":                 {},
	"resent-cc":                 {},
	"resent-bcc":                {},
	"resent-date":               {},
	"resent-message-id":         {},
}

// IsStructured reports whether the named field carries attributes.
func IsStructured(name string) bool {
	_, ok := structuredFields[strings.ToLower(name)]
	return ok
}

// Attribute is one key=value parameter of a structured field body.
type Attribute struct {
	Name  string
	Value string
}

// Field is a single header field: a case-insensitive name and an unfolded
// body. Structured fields additionally expose their ;-delimited attributes.
type Field struct {
	name string
	body string

	attrs       []Attribute
	attrsParsed bool
}

// NewField constructs a field from a name and an already-unfolded body.
func NewField(name, body string) *Field {
	if body == "" {
		logrus.WithField("field", name).Warn("Header field has an empty body")
	}

	return &Field{name: name, body: body}
}

// ParseField parses a raw header line (which may contain folded
// continuations) into a field.
func ParseField(raw []byte) (*Field, error) {
	unfolded := Unfold(raw)

	name, body, ok := strings.Cut(unfolded, ":")
	if !ok {
		return nil, ErrMalformedField
	}

	return NewField(strings.TrimSpace(name), strings.TrimSpace(body)), nil
}

func (f *Field) Name() string {
	return f.name
}

// Body returns the unfolded field body.
func (f *Field) Body() string {
	return f.body
}

// SetBody replaces the field body and re-validates structuredness: any
// previously parsed attributes are discarded and re-derived from the new body.
func (f *Field) SetBody(body string) {
	f.body = body
	f.attrs = nil
	f.attrsParsed = false
}

// IsStructured reports whether this field's body carries attributes.
func (f *Field) IsStructured() bool {
	return IsStructured(f.name)
}

// MainValue returns the body up to the first attribute separator, for
// structured fields. For unstructured fields it is the whole body.
func (f *Field) MainValue() string {
	if !f.IsStructured() {
		return f.body
	}

	main, _, _ := strings.Cut(f.body, ";")

	return strings.TrimSpace(main)
}

// Attribute returns the value of the named attribute, if present.
func (f *Field) Attribute(name string) (string, bool) {
	if !f.IsStructured() {
		return "", false
	}

	f.ensureAttrs()

	for _, attr := range f.attrs {
		if strings.EqualFold(attr.Name, name) {
			return attr.Value, true
		}
	}

	return "", false
}

// Attributes returns all attributes in their original order.
func (f *Field) Attributes() []Attribute {
	f.ensureAttrs()

	return append([]Attribute(nil), f.attrs...)
}

// SetAttribute adds or replaces an attribute and re-renders the field body.
func (f *Field) SetAttribute(name, value string) {
	f.ensureAttrs()

	var replaced bool

	for idx, attr := range f.attrs {
		if strings.EqualFold(attr.Name, name) {
			f.attrs[idx].Value = value
			replaced = true

			break
		}
	}

	if !replaced {
		f.attrs = append(f.attrs, Attribute{Name: name, Value: value})
	}

	f.renderBody()
}

// Fold splits the field into raw lines no wider than width, ready to be
// written to a message file. Continuation lines begin with a single space.
func (f *Field) Fold(width int) []string {
	return Fold(f.name, f.body, width, f.IsStructured())
}

// Clone returns an independent copy of the field.
func (f *Field) Clone() *Field {
	clone := &Field{name: f.name, body: f.body, attrsParsed: f.attrsParsed}
	clone.attrs = append([]Attribute(nil), f.attrs...)

	return clone
}

func (f *Field) ensureAttrs() {
	if f.attrsParsed || !f.IsStructured() {
		return
	}

	f.attrsParsed = true

	_, rest, found := strings.Cut(f.body, ";")
	if !found {
		return
	}

	for _, param := range splitParams(rest) {
		name, value, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}

		f.attrs = append(f.attrs, Attribute{
			Name:  strings.TrimSpace(name),
			Value: unquote(strings.TrimSpace(value)),
		})
	}
}

func (f *Field) renderBody() {
	var b strings.Builder

	b.WriteString(f.MainValue())

	for _, attr := range f.attrs {
		b.WriteString("; ")
		b.WriteString(attr.Name)
		b.WriteString("=")
		b.WriteString(quoteIfNeeded(attr.Value))
	}

	f.body = b.String()
}

// splitParams splits a parameter list on semicolons, honouring quoted values.
func splitParams(s string) []string {
	var (
		params  []string
		current strings.Builder
		quoted  bool
	)

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)

		case r == ';' && !quoted:
			if param := strings.TrimSpace(current.String()); param != "" {
				params = append(params, param)
			}

			current.Reset()

		default:
			current.WriteRune(r)
		}
	}

	if param := strings.TrimSpace(current.String()); param != "" {
		params = append(params, param)
	}

	return params
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t();:,<>@\"") {
		return `"` + s + `"`
	}

	return s
}
