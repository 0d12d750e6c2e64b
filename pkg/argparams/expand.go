package argparams

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrFileDepth is wrapped by a FileError when parameter files nest deeper
// than Options.MaxFileDepth.
var ErrFileDepth = errors.New("parameter files nested too deeply")

// FileError reports a parameter file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("parameter file %q: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// expand merges the lines of the parameter file at path into the parameter
// set. depth is the nesting level of the file itself.
func (p *parser) expand(path string, depth int) error {
	if p.opts.MaxFileDepth > 0 && depth > p.opts.MaxFileDepth {
		return errors.WithHintf(&FileError{Path: path, Err: ErrFileDepth},
			"parameter files may nest %d levels; check for a file that includes itself", p.opts.MaxFileDepth)
	}

	f, err := p.opts.Open(path)
	if err != nil {
		return errors.WithHint(&FileError{Path: path, Err: err},
			"check the path given to the parameter file option")
	}
	defer func() { _ = f.Close() }()

	// A byte order mark selects the file's encoding and is dropped; without
	// one the file is UTF-8.
	reader := bufio.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			if key, value, ok := parseFileLine(line); ok {
				if err := p.add(key, value, depth); err != nil {
					return err
				}
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return &FileError{Path: path, Err: readErr}
		}
	}
}

// parseFileLine reads one parameter file line. Recognized forms:
//   - key
//   - key = value
//   - key value
//
// Blank lines and lines whose first non-blank character is '#' yield ok=false.
func parseFileLine(line string) (key, value string, ok bool) {
	line = strings.TrimRight(line, "\r\n")

	pos := skipSpace(line, 0)
	if pos >= len(line) || line[pos] == '#' {
		return "", "", false
	}

	start := pos
	for pos < len(line) && line[pos] != '=' {
		space, size := spaceAt(line, pos)
		if space {
			break
		}
		pos += size
	}
	key = line[start:pos]

	pos = skipSpace(line, pos)
	if pos < len(line) && line[pos] == '=' {
		pos++
	}

	return key, strings.TrimSpace(line[pos:]), true
}
