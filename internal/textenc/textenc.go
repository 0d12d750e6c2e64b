// Package textenc maps the encoding names accepted on the command line to
// golang.org/x/text encoders.
package textenc

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Default is the output encoding used when none is given.
const Default = "ascii"

var (
	// ErrUnknownEncoding is returned for names that are not recognized.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrUnsupportedEncoding is returned for recognized names with no encoder.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// Encoding converts UTF-8 text to an output encoding.
type Encoding struct {
	Name string

	// newEncoder returns nil for UTF-8 passthrough.
	newEncoder func() transform.Transformer
}

var encodings = map[string]func() transform.Transformer{
	"ascii": func() transform.Transformer {
		return runes.Map(func(r rune) rune {
			if r > 127 {
				return '?'
			}
			return r
		})
	},
	"unicode": func() transform.Transformer {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	},
	"utf16": func() transform.Transformer {
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	},
	"utf8": func() transform.Transformer {
		return unicode.UTF8BOM.NewEncoder()
	},
	"utf32": func() transform.Transformer {
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewEncoder()
	},
}

var charsets = map[string]string{
	"ascii":   "us-ascii",
	"unicode": "utf-16",
	"utf16":   "utf-16",
	"utf8":    "utf-8",
	"utf32":   "utf-32",
}

// Names lists the accepted encoding names.
func Names() []string {
	return []string{"ascii", "unicode", "utf7", "utf8", "utf16", "utf32"}
}

// Lookup finds an encoding by name, ignoring case and surrounding space.
func Lookup(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "utf7" {
		return Encoding{}, errors.WithHint(errors.Wrapf(ErrUnsupportedEncoding, "%q", name),
			"use utf8 instead")
	}

	newEncoder, ok := encodings[key]
	if !ok {
		return Encoding{}, errors.WithHintf(errors.Wrapf(ErrUnknownEncoding, "%q", name),
			"valid encodings: %s", strings.Join(Names(), ", "))
	}
	return Encoding{Name: key, newEncoder: newEncoder}, nil
}

// Charset returns the MIME charset label of the encoding.
func (e Encoding) Charset() string {
	return charsets[e.Name]
}

// NewWriter wraps w so that text written to it is encoded. Close flushes
// any pending output but does not close w.
func (e Encoding) NewWriter(w io.Writer) io.WriteCloser {
	if e.newEncoder == nil {
		return nopCloser{w}
	}
	return transform.NewWriter(w, e.newEncoder())
}

// Bytes encodes s.
func (e Encoding) Bytes(s string) ([]byte, error) {
	if e.newEncoder == nil {
		return []byte(s), nil
	}
	out, _, err := transform.Bytes(e.newEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "encoding text as %s", e.Name)
	}
	return out, nil
}

// NewReader decodes r to UTF-8, honoring a UTF-8 or UTF-16 byte order mark
// and assuming UTF-8 otherwise.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
