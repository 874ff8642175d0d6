package speech

import (
	"regexp"
	"strings"
	"unicode"
)

// Markdown and list markup that must never be vocalized.
var (
	codeFenceRe  = regexp.MustCompile("```[^`]*```")
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	listMarkerRe = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+`)
	emphasisRe   = regexp.MustCompile(`[*_~]{1,3}`)
)

// Sanitize strips formatting artifacts from assistant text before synthesis:
// markdown markup, list markers, emoji and other symbol runes. Spoken output
// should carry words and sentence punctuation only.
func Sanitize(text string) string {
	t := codeFenceRe.ReplaceAllString(text, " ")
	t = inlineCodeRe.ReplaceAllString(t, "$1")
	t = linkRe.ReplaceAllString(t, "$1")
	t = headingRe.ReplaceAllString(t, "")
	t = listMarkerRe.ReplaceAllString(t, "")
	t = emphasisRe.ReplaceAllString(t, "")

	var b strings.Builder
	for _, r := range t {
		if unicode.In(r, unicode.So, unicode.Sk, unicode.Cs, unicode.Co) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
