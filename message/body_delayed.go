package message

import (
	"io"
)

// DelayedBody knows where its bytes live but has not read them. The first
// content access loads once and every later call delegates to the loaded
// representation.
type DelayedBody struct {
	info BodyInfo
	load func() (Body, error)

	sizeHint  int64
	linesHint int

	body Body
}

// NewDelayedBody defers reading to load. sizeHint and linesHint, when
// non-zero, answer Size and LineCount without materializing.
func NewDelayedBody(info BodyInfo, sizeHint int64, linesHint int, load func() (Body, error)) *DelayedBody {
	return &DelayedBody{info: info, load: load, sizeHint: sizeHint, linesHint: linesHint}
}

// IsLoaded reports whether the content has been materialized.
func (b *DelayedBody) IsLoaded() bool {
	return b.body != nil
}

func (b *DelayedBody) ensureLoaded() (Body, error) {
	if b.body == nil {
		loaded, err := b.load()
		if err != nil {
			return nil, err
		}

		b.body = loaded
	}

	return b.body, nil
}

func (b *DelayedBody) Info() BodyInfo { return b.info }

func (b *DelayedBody) Lines() ([]string, error) {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return nil, err
	}

	return loaded.Lines()
}

func (b *DelayedBody) String() (string, error) {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return "", err
	}

	return loaded.String()
}

func (b *DelayedBody) Reader() (io.ReadCloser, error) {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return nil, err
	}

	return loaded.Reader()
}

func (b *DelayedBody) Size() (int64, error) {
	if b.body == nil && b.sizeHint > 0 {
		return b.sizeHint, nil
	}

	loaded, err := b.ensureLoaded()
	if err != nil {
		return 0, err
	}

	return loaded.Size()
}

func (b *DelayedBody) LineCount() (int, error) {
	if b.body == nil && b.linesHint > 0 {
		return b.linesHint, nil
	}

	loaded, err := b.ensureLoaded()
	if err != nil {
		return 0, err
	}

	return loaded.LineCount()
}

func (b *DelayedBody) Print(w io.Writer) error {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return err
	}

	return loaded.Print(w)
}

func (b *DelayedBody) Decoded() (Body, error) {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return nil, err
	}

	return loaded.Decoded()
}

func (b *DelayedBody) Encoded(transfer, charset string) (Body, error) {
	loaded, err := b.ensureLoaded()
	if err != nil {
		return nil, err
	}

	return loaded.Encoded(transfer, charset)
}

func (b *DelayedBody) IsMultipart() bool {
	return b.info.Type.IsMultipart()
}

func (b *DelayedBody) IsNested() bool {
	return b.info.Type.IsNested()
}

func (b *DelayedBody) Clone() Body {
	if b.body != nil {
		return b.body.Clone()
	}

	return NewDelayedBody(b.info.clone(), b.sizeHint, b.linesHint, b.load)
}
