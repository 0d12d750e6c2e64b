package md

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// blankRuns matches three or more newlines left behind by stripped markup.
var blankRuns = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts an HTML body to markdown, which doubles as the
// plain-text alternative of an HTML e-mail.
func ToMarkdown(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", err
	}

	markdown = blankRuns.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown), nil
}
