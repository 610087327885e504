package rfc822

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Scanner splits a multipart body on its boundary token. Any line starting
// with --boundary is a structural separator; --boundary-- terminates the
// parts and everything after it is the epilogue.
type Scanner struct {
	r *bufio.Reader

	boundary string
	progress int
}

// Part is one multipart part, with its byte offset within the scanned body.
type Part struct {
	Data   []byte
	Offset int
}

// ScanResult is a fully scanned multipart body. An absent preamble or
// epilogue is nil, never an empty slice, so write-back does not introduce
// spurious blank lines.
type ScanResult struct {
	Preamble []byte
	Parts    []Part
	Epilogue []byte
}

func NewScanner(r io.Reader, boundary string) *Scanner {
	return &Scanner{r: bufio.NewReader(r), boundary: boundary}
}

// ScanAll reads the whole body: preamble, every part, then the epilogue.
func (s *Scanner) ScanAll() (*ScanResult, error) {
	res := &ScanResult{}

	// Everything before the first separator is the preamble.
	preamble, state, err := s.readToBoundary()
	if err != nil {
		return nil, err
	}

	if len(preamble) > 0 {
		res.Preamble = preamble
	}

	for state == scanMore {
		offset := s.progress

		var data []byte

		data, state, err = s.readToBoundary()
		if err != nil {
			return nil, err
		}

		if state == scanEOF && len(data) == 0 {
			break
		}

		res.Parts = append(res.Parts, Part{Data: data, Offset: offset})
	}

	if state == scanTerminal {
		epilogue, err := io.ReadAll(s.r)
		if err != nil {
			return nil, err
		}

		if len(bytes.TrimSpace(epilogue)) > 0 {
			res.Epilogue = epilogue
		}
	}

	return res, nil
}

type scanState int

const (
	scanMore scanState = iota
	scanTerminal
	scanEOF
)

func (s *Scanner) readToBoundary() ([]byte, scanState, error) {
	var res []byte

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, scanEOF, err
			}

			if len(line) == 0 {
				return trimTrailingNewline(res), scanEOF, nil
			}
		}

		s.progress += len(line)

		trimmed := bytes.TrimSpace(line)

		switch {
		case bytes.HasPrefix(trimmed, []byte("--"+s.boundary+"--")):
			return trimTrailingNewline(res), scanTerminal, nil

		case bytes.HasPrefix(trimmed, []byte("--"+s.boundary)):
			return trimTrailingNewline(res), scanMore, nil

		default:
			res = append(res, line...)
		}
	}
}

func trimTrailingNewline(b []byte) []byte {
	return bytes.TrimSuffix(bytes.TrimSuffix(b, []byte("\n")), []byte("\r"))
}
