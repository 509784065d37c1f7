package utils

import "strings"

// StripMarkdown removes "**", "__" and leading "#" heading markers. It runs
// to a fixpoint because one removal can expose another.
func StripMarkdown(s string) string {
	for {
		out := stripMarkdownOnce(s)
		if out == s {
			return out
		}
		s = out
	}
}

func stripMarkdownOnce(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = strings.TrimLeft(strings.TrimLeft(trimmed, "#"), " \t")
		}
	}
	return strings.Join(lines, "\n")
}
