// Package argparams splits a raw invocation line into positional arguments
// and named parameters.
//
// A parameter starts with '-' or '/' and may carry a value after ':' or '='
// (or after whitespace). Values may be quoted with '"' or '\'', a doubled
// quote standing for a literal one. Keys listed in Options.FileKeys name
// parameter files whose lines are merged into the same parameter set.
//
// Parsing text never fails: malformed input degrades to a best-effort token.
// The only errors come from reading parameter files.
package argparams

import (
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultMaxFileDepth is the parameter file nesting limit used when
// Options.MaxFileDepth is zero.
const DefaultMaxFileDepth = 16

// MergePolicy decides what happens when a key is seen more than once.
type MergePolicy struct {
	concatenate bool
	separator   string
}

// Overwrite keeps the last value given for a key.
func Overwrite() MergePolicy {
	return MergePolicy{}
}

// Concatenate joins repeated values with sep. Occurrences of sep inside the
// incoming value are removed before it is appended.
func Concatenate(sep string) MergePolicy {
	return MergePolicy{concatenate: true, separator: sep}
}

// Separator reports the join separator and whether the policy concatenates.
func (m MergePolicy) Separator() (string, bool) {
	return m.separator, m.concatenate
}

func (m MergePolicy) merge(existing, incoming string) string {
	if !m.concatenate {
		return incoming
	}
	if m.separator != "" {
		incoming = strings.ReplaceAll(incoming, m.separator, "")
	}
	return existing + m.separator + incoming
}

// Options configures a single Parse call.
type Options struct {
	// IgnoreCase makes key comparison case-insensitive (Unicode case folding).
	IgnoreCase bool

	// Merge is the duplicate key policy. The zero value overwrites.
	Merge MergePolicy

	// FileKeys are reserved keys whose value is the path of a parameter file.
	FileKeys []string

	// MaxFileDepth bounds parameter file nesting. Zero means
	// DefaultMaxFileDepth, a negative value disables the limit.
	MaxFileDepth int

	// Open opens parameter files. Defaults to os.Open.
	Open func(name string) (io.ReadCloser, error)
}

func (o Options) withDefaults() Options {
	if o.MaxFileDepth == 0 {
		o.MaxFileDepth = DefaultMaxFileDepth
	}
	if o.Open == nil {
		o.Open = func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		}
	}
	return o
}

// Result is the outcome of a Parse call.
type Result struct {
	// Text is the raw line that was parsed.
	Text string

	// Arguments holds positional tokens in encounter order.
	Arguments []string

	// Params holds the named parameters.
	Params *Map
}

// Argument returns the positional argument at i, or "" and false if there is none.
func (r *Result) Argument(i int) (string, bool) {
	if i < 0 || i >= len(r.Arguments) {
		return "", false
	}
	return r.Arguments[i], true
}

// Empty reports whether the parse produced neither arguments nor parameters.
func (r *Result) Empty() bool {
	return len(r.Arguments) == 0 && r.Params.Len() == 0
}

// Entry is a single key/value pair.
type Entry struct {
	Key   string
	Value string
}

// Map is an insertion-ordered parameter set with optionally case-insensitive
// keys. The key spelling kept is the one seen first.
//
// A Map is not safe for concurrent use while a Parse is filling it.
type Map struct {
	ignoreCase bool
	fold       cases.Caser
	index      map[string]int
	entries    []Entry
}

func newMap(ignoreCase bool) *Map {
	m := &Map{
		ignoreCase: ignoreCase,
		index:      make(map[string]int),
	}
	if ignoreCase {
		m.fold = cases.Fold()
	}
	return m
}

func (m *Map) normalize(key string) string {
	if !m.ignoreCase {
		return key
	}
	return m.fold.String(key)
}

// IgnoreCase reports whether keys are compared without regard to case.
func (m *Map) IgnoreCase() bool {
	return m.ignoreCase
}

// Get returns the value stored for key.
func (m *Map) Get(key string) (string, bool) {
	i, ok := m.index[m.normalize(key)]
	if !ok {
		return "", false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.index[m.normalize(key)]
	return ok
}

// Len returns the number of distinct keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the pairs in insertion order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// ToMap copies the pairs into a plain Go map keyed by the stored spelling.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.Key] = e.Value
	}
	return out
}

func (m *Map) equalKeys(a, b string) bool {
	if !m.ignoreCase {
		return a == b
	}
	return m.normalize(a) == m.normalize(b)
}

func (m *Map) set(key, value string) {
	norm := m.normalize(key)
	if i, ok := m.index[norm]; ok {
		m.entries[i].Value = value
		return
	}
	m.index[norm] = len(m.entries)
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}
