package subtitle

import (
	"strings"
	"unicode/utf8"
)

// Split breaks a narration script into subtitle chunks. Boundaries are
// author-controlled: the text is split strictly on line breaks, each line
// is trimmed and empty lines are dropped. Order is preserved.
func Split(script string) []string {
	var chunks []string
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

// Index maps a progress fraction to a chunk index, weighting each chunk
// by its character (rune) length. Longer lines get proportionally more
// screen time, approximating spoken pacing. The result is monotonically
// non-decreasing in progress and always a valid index; an empty chunk
// list yields 0.
func Index(chunks []string, progress float64) int {
	if len(chunks) == 0 || progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return len(chunks) - 1
	}

	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}
	if total == 0 {
		return 0
	}

	target := progress * float64(total)
	cum := 0
	for i, c := range chunks {
		cum += utf8.RuneCountInString(c)
		if float64(cum) >= target {
			return i
		}
	}
	return len(chunks) - 1
}
