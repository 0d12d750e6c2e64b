// Package csvio reads and writes delimited text with the field clean-up
// options sqlcsv supports: whitespace trimming, replace rules and ASCII
// filtering.
package csvio

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// Options controls field clean-up.
type Options struct {
	// Separator is the field separator. Zero means ','.
	Separator rune

	// TrimSpace trims leading and trailing whitespace from data fields.
	TrimSpace bool

	// Replace rules are applied to data fields in order.
	Replace []ReplaceRule

	// ControlReplacement, when non-nil, replaces control and non-ASCII
	// characters in written data fields.
	ControlReplacement *string
}

func (o Options) separator() rune {
	if o.Separator == 0 {
		return ','
	}
	return o.Separator
}

// ValidateSeparator reports whether r can separate fields.
func ValidateSeparator(r rune) error {
	if r == 0 || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return errors.Newf("%q cannot be used as a field separator", r)
	}
	return nil
}

func (o Options) clean(value string, replace bool) string {
	if o.TrimSpace {
		value = strings.TrimSpace(value)
	}
	if replace {
		value = ApplyRules(value, o.Replace)
	}
	return value
}

// Writer writes records.
type Writer struct {
	w    *csv.Writer
	opts Options
}

// NewWriter creates a writer over w.
func NewWriter(w io.Writer, opts Options) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = opts.separator()
	return &Writer{w: cw, opts: opts}
}

// WriteHeader writes column names as they are.
func (w *Writer) WriteHeader(names []string) error {
	return w.w.Write(names)
}

// Write writes one data record after clean-up.
func (w *Writer) Write(values []string) error {
	record := make([]string, len(values))
	for i, v := range values {
		v = w.opts.clean(v, true)
		if w.opts.ControlReplacement != nil {
			v = ASCIIOnly(v, *w.opts.ControlReplacement)
		}
		record[i] = v
	}
	return w.w.Write(record)
}

// Flush writes buffered data and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Reader reads records.
type Reader struct {
	r    *csv.Reader
	opts Options
}

// NewReader creates a reader over r. Records may have differing field
// counts and bare quotes are tolerated.
func NewReader(r io.Reader, opts Options) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = opts.separator()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Reader{r: cr, opts: opts}
}

// ReadHeader reads a header record. Names are trimmed but not replaced.
func (r *Reader) ReadHeader() ([]string, error) {
	return r.read(false)
}

// Read reads one data record. It returns io.EOF at the end of input.
func (r *Reader) Read() ([]string, error) {
	return r.read(true)
}

func (r *Reader) read(replace bool) ([]string, error) {
	record, err := r.r.Read()
	if err != nil {
		return nil, err
	}
	for i, v := range record {
		record[i] = r.opts.clean(v, replace)
	}
	return record, nil
}
