package bubbletea

import "github.com/charmbracelet/lipgloss"

// tabWidth is the standard terminal tab stop interval.
const tabWidth = 8

// DisplayWidth calculates the display width of a string, expanding tab
// characters to the next 8-column boundary. lipgloss.Width alone reports
// 0 for tabs.
func DisplayWidth(s string) int {
	col := 0
	for _, r := range s {
		if r == '\t' {
			col = ((col / tabWidth) + 1) * tabWidth
		} else {
			col += lipgloss.Width(string(r))
		}
	}
	return col
}

// ExpandTabs replaces tabs with spaces up to the next tab stop so styled
// segments line up in both columns of the side-by-side view.
func ExpandTabs(s string) string {
	out := make([]rune, 0, len(s))
	col := 0
	for _, r := range s {
		if r == '\t' {
			next := ((col / tabWidth) + 1) * tabWidth
			for col < next {
				out = append(out, ' ')
				col++
			}
			continue
		}
		out = append(out, r)
		col += lipgloss.Width(string(r))
	}
	return string(out)
}
