// scanner.go implements the cursor-level scanning shared by the tokenizer
// and the parameter file reader.
package argparams

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isStarter reports whether c begins a parameter key.
func isStarter(c byte) bool {
	return c == '-' || c == '/'
}

// isValueSeparator reports whether c separates a key from its inline value.
func isValueSeparator(c byte) bool {
	return c == ':' || c == '='
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// spaceAt reports whether a whitespace rune starts at pos, and its width.
func spaceAt(text string, pos int) (bool, int) {
	r, size := utf8.DecodeRuneInString(text[pos:])
	return unicode.IsSpace(r), size
}

// skipSpace returns the offset of the first non-whitespace rune at or after
// pos, or len(text).
func skipSpace(text string, pos int) int {
	for pos < len(text) {
		space, size := spaceAt(text, pos)
		if !space {
			break
		}
		pos += size
	}
	return pos
}

// scanKey reads a key starting at pos. The key ends at whitespace, a value
// separator, another parameter starter, or the end of text.
func scanKey(text string, pos int) (string, int) {
	start := pos
	for pos < len(text) {
		c := text[pos]
		if isValueSeparator(c) || isStarter(c) {
			break
		}
		space, size := spaceAt(text, pos)
		if space {
			break
		}
		pos += size
	}
	return text[start:pos], pos
}

// scanValue extracts one value starting at pos and returns it with the
// offset just past it.
//
// A value opening with '"' or '\'' runs to the matching quote, with a doubled
// quote read as one literal quote. An unterminated quote runs to the end of
// text. Any other value runs verbatim up to whitespace or the end of text.
func scanValue(text string, pos int) (string, int) {
	if pos >= len(text) {
		return "", pos
	}

	if !isQuote(text[pos]) {
		start := pos
		for pos < len(text) {
			space, size := spaceAt(text, pos)
			if space {
				break
			}
			pos += size
		}
		return text[start:pos], pos
	}

	quote := text[pos]
	pos++ // skip opening quote
	start := pos
	var value strings.Builder

	for pos < len(text) {
		if text[pos] != quote {
			pos++
			continue
		}
		value.WriteString(text[start:pos])

		// Doubled quote: literal quote character
		if pos+1 < len(text) && text[pos+1] == quote {
			value.WriteByte(quote)
			pos += 2
			start = pos
			continue
		}

		return value.String(), pos + 1
	}

	value.WriteString(text[start:])
	return value.String(), pos
}
