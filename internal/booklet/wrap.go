package booklet

import "strings"

// DefaultLabelBudget is the default per-line character budget for chip
// labels. Grid cells tighten it further.
const DefaultLabelBudget = 25

// gridLabelBudget is the budget used inside day cells, where seven
// columns leave little horizontal room.
const gridLabelBudget = 18

// FormatLabel wraps text into lines of at most maxLen characters using
// a greedy line fill: words are appended while they fit, and a single
// word longer than the budget is broken at its midpoint. Whitespace is
// collapsed first. Lengths are counted in runes.
func FormatLabel(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if len([]rune(text)) <= maxLen {
		return text
	}

	var lines []string
	var current string

	for _, word := range strings.Split(text, " ") {
		test := word
		if current != "" {
			test = current + " " + word
		}
		if len([]rune(test)) <= maxLen {
			current = test
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		// First word of the line and already over budget: break the
		// word at its midpoint.
		runes := []rune(word)
		if len(runes) > maxLen {
			mid := len(runes) / 2
			lines = append(lines, string(runes[:mid]), string(runes[mid:]))
		} else {
			lines = append(lines, word)
		}
	}
	if current != "" {
		lines = append(lines, current)
	}

	return strings.Join(lines, "\n")
}

// FontSize shrinks the chip font in fixed steps as the label grows:
// one point over 15 characters, two over 25, three over 35. The floor
// is base minus three.
func FontSize(text string, base int) int {
	switch n := len([]rune(text)); {
	case n <= 15:
		return base
	case n <= 25:
		return base - 1
	case n <= 35:
		return base - 2
	default:
		return base - 3
	}
}
