package message

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileBody spools the payload to a temporary file so that large messages do
// not have to live in memory. A missing or unreadable spool file degrades to
// empty content rather than failing the caller.
type FileBody struct {
	info BodyInfo
	path string
	size int64
}

// NewFileBody spools r into a fresh temporary file.
func NewFileBody(info BodyInfo, r io.Reader) (*FileBody, error) {
	f, err := os.CreateTemp("", "mailfold-body-")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return nil, err
	}

	return &FileBody{info: info, path: f.Name(), size: size}, nil
}

func (b *FileBody) Info() BodyInfo { return b.info }

// Path returns the spool file location.
func (b *FileBody) Path() string { return b.path }

func (b *FileBody) Lines() ([]string, error) {
	s, err := b.String()
	if err != nil {
		return nil, err
	}

	return splitLines([]byte(s)), nil
}

func (b *FileBody) String() (string, error) {
	payload, err := os.ReadFile(b.path)
	if err != nil {
		logrus.WithError(err).WithField("path", b.path).Warn("Spooled body unreadable; degrading to empty content")
		return "", nil
	}

	return string(payload), nil
}

func (b *FileBody) Reader() (io.ReadCloser, error) {
	f, err := os.Open(b.path)
	if err != nil {
		logrus.WithError(err).WithField("path", b.path).Warn("Spooled body unreadable; degrading to empty content")
		return io.NopCloser(strings.NewReader("")), nil
	}

	return f, nil
}

func (b *FileBody) Size() (int64, error) {
	return b.size, nil
}

func (b *FileBody) LineCount() (int, error) {
	lines, err := b.Lines()
	if err != nil {
		return 0, err
	}

	return len(lines), nil
}

func (b *FileBody) Print(w io.Writer) error {
	r, err := b.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(w, r)

	return err
}

func (b *FileBody) Decoded() (Body, error) {
	return decodeScalar(b, respoolRebuild)
}

func (b *FileBody) Encoded(transfer, charset string) (Body, error) {
	return encodeScalar(b, transfer, charset, respoolRebuild)
}

func (b *FileBody) IsMultipart() bool { return false }
func (b *FileBody) IsNested() bool    { return false }

// Clone shares the spool file; the file is immutable once written.
func (b *FileBody) Clone() Body {
	return &FileBody{info: b.info.clone(), path: b.path, size: b.size}
}

// Remove deletes the spool file. Only the owning folder calls this, when the
// message leaves its collection.
func (b *FileBody) Remove() error {
	return os.Remove(b.path)
}

func respoolRebuild(info BodyInfo, payload []byte) Body {
	spooled, err := NewFileBody(info, strings.NewReader(string(payload)))
	if err != nil {
		logrus.WithError(err).Warn("Failed to spool re-encoded body; keeping it in memory")
		return NewStringBody(info, string(payload))
	}

	return spooled
}
