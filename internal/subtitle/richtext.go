package subtitle

import "strings"

// EmphasisMarker delimits emphasis spans inside a subtitle line: *word*.
const EmphasisMarker = '*'

// Run is one styled fragment of a subtitle line.
type Run struct {
	Text     string
	Emphasis bool
}

// ParseRuns splits a line into ordered emphasized/plain runs. Markers
// pair left to right; an unpaired trailing marker is treated as literal
// text rather than an open span. Empty runs are dropped.
func ParseRuns(line string) []Run {
	var runs []Run
	rest := line
	for {
		open := strings.IndexRune(rest, EmphasisMarker)
		if open < 0 {
			break
		}
		width := strings.IndexRune(rest[open+1:], EmphasisMarker)
		if width < 0 {
			// Unpaired marker stays literal.
			break
		}
		if open > 0 {
			runs = append(runs, Run{Text: rest[:open]})
		}
		if span := rest[open+1 : open+1+width]; span != "" {
			runs = append(runs, Run{Text: span, Emphasis: true})
		}
		rest = rest[open+width+2:]
	}
	if rest != "" {
		runs = append(runs, Run{Text: rest})
	}
	return runs
}
