package io

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encodings lists the supported text encoding names
var Encodings = []string{"utf-8", "windows-1252", "iso-8859-1"}

// lookupEncoding resolves an encoding name. The empty name means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q (supported: %s)", name, strings.Join(Encodings, ", "))
	}
}

// decodingReader returns r decoded to UTF-8 from the named encoding.
// A leading UTF-8 byte order mark is dropped.
func decodingReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// encodingWriter returns w encoding UTF-8 text into the named encoding.
// UTF-8 output is written unchanged, without a byte order mark. Close
// flushes the encoder but does not close w. Characters the target encoding
// cannot represent are replaced.
func encodingWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8BOM {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder())), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
