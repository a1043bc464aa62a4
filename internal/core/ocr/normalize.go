package ocr

import (
	"regexp"
	"strings"
)

var (
	reANSI       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips terminal escapes the ollama CLI can leave in its output
// and collapses noisy whitespace. Markdown structure (tables, headings, line
// breaks) is kept; more than one blank line collapses into one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reANSI.ReplaceAllString(s, "")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
