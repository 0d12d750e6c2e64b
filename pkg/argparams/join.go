package argparams

import (
	"strings"
	"unicode"
)

// Join rebuilds a raw line from arguments the operating system has already
// split, so that Parse reads back the same tokens.
//
// Arguments holding whitespace, or starting with a quote, are quoted with
// doubled inner quotes. For "-key:value" arguments only the value is quoted,
// and an empty value after the separator is written as "".
// With quotePaths set, arguments starting with '/' are quoted as positional
// values instead of being read as parameters.
func Join(args []string, quotePaths bool) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, joinArg(arg, quotePaths))
	}
	return strings.Join(parts, " ")
}

func joinArg(arg string, quotePaths bool) string {
	if arg == "" {
		return `""`
	}

	isParam := isStarter(arg[0]) && !(quotePaths && arg[0] == '/')
	if !isParam {
		if needsQuote(arg) || isStarter(arg[0]) {
			return quote(arg)
		}
		return arg
	}

	_, end := scanKey(arg, 1)
	if end < len(arg) && isValueSeparator(arg[end]) {
		value := arg[end+1:]
		if value == "" {
			return arg + `""`
		}
		if needsQuote(value) {
			return arg[:end+1] + quote(value)
		}
	}
	return arg
}

func needsQuote(s string) bool {
	return isQuote(s[0]) || strings.IndexFunc(s, unicode.IsSpace) >= 0
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
