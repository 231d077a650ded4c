package normalizer

import (
	"strings"
)

// RepairLines unwraps rows that an exporter wrapped whole in one pair of
// quotes, for example
//
//	" Pondasi,""Pedestal"",123"
//
// A line is repaired only when its inner text holds nothing but doubled-quote
// escapes, contains the delimiter, and the repaired line would not itself
// qualify for repair. Every other line is returned unchanged, so repairing
// twice gives the same text as repairing once. It returns the text and the
// number of repaired lines.
func RepairLines(text string, delim rune) (string, int) {
	lines := strings.Split(text, "\n")
	repaired := 0
	for i, line := range lines {
		if fixed, ok := unwrap(line, delim); ok {
			if _, again := unwrap(fixed, delim); again {
				continue
			}
			lines[i] = fixed
			repaired++
		}
	}
	return strings.Join(lines, "\n"), repaired
}

func unwrap(line string, delim rune) (string, bool) {
	t := strings.TrimSpace(line)
	if len(t) < 2 || t[0] != '"' || t[len(t)-1] != '"' {
		return "", false
	}
	inner := t[1 : len(t)-1]
	if strings.Contains(strings.ReplaceAll(inner, `""`, ""), `"`) {
		return "", false
	}
	if !strings.ContainsRune(inner, delim) {
		return "", false
	}
	return strings.ReplaceAll(inner, `""`, `"`), true
}
