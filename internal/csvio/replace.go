package csvio

import (
	"strings"
	"unicode"
)

// ReplaceRule replaces every occurrence of Old with New in a field value.
type ReplaceRule struct {
	Old string
	New string
}

// ParseReplaceRule parses an "old:new" rule. The first unescaped ':' splits
// the two halves; without one, New is empty. Escapes: \t, \n, \r, \: and \\.
// A backslash before any other character is kept.
func ParseReplaceRule(text string) ReplaceRule {
	var b strings.Builder
	var old string
	split := false

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\\' && i+1 < len(runes):
			i++
			switch next := runes[i]; unicode.ToLower(next) {
			case 't':
				b.WriteRune('\t')
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			case ':', '\\':
				b.WriteRune(next)
			default:
				b.WriteRune('\\')
				b.WriteRune(next)
			}
		case r == ':' && !split:
			old = b.String()
			b.Reset()
			split = true
		default:
			b.WriteRune(r)
		}
	}

	if !split {
		return ReplaceRule{Old: b.String()}
	}
	return ReplaceRule{Old: old, New: b.String()}
}

// ApplyRules runs the rules over value in order.
func ApplyRules(value string, rules []ReplaceRule) string {
	for _, rule := range rules {
		if rule.Old == "" {
			continue
		}
		value = strings.ReplaceAll(value, rule.Old, rule.New)
	}
	return value
}

// ASCIIOnly replaces every character outside printable ASCII with
// replacement. Tab, CR and LF are kept.
func ASCIIOnly(text, replacement string) string {
	clean := true
	for _, r := range text {
		if !isPlainASCII(r) {
			clean = false
			break
		}
	}
	if clean {
		return text
	}

	var b strings.Builder
	for _, r := range text {
		if isPlainASCII(r) {
			b.WriteRune(r)
		} else {
			b.WriteString(replacement)
		}
	}
	return b.String()
}

func isPlainASCII(r rune) bool {
	return (r >= 32 && r <= 126) || r == '\t' || r == '\r' || r == '\n'
}
