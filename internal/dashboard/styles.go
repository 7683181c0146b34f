package dashboard

import (
	"github.com/charmbracelet/lipgloss"
)

// MinLeftWidth is the minimum character width for the left pane.
const MinLeftWidth = 28

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedText  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	errorText  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	warnText   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "208", Dark: "208"})
	priceText  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})

	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true)
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
)

// CacheBadge returns a styled cache classification label: green for HIT,
// yellow for MISS, gray otherwise.
func CacheBadge(label string) string {
	color := lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	switch label {
	case "HIT":
		color = lipgloss.AdaptiveColor{Light: "2", Dark: "10"}
	case "MISS":
		color = lipgloss.AdaptiveColor{Light: "3", Dark: "11"}
	}
	return lipgloss.NewStyle().Foreground(color).Render(label)
}

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// PaneWidths calculates the left and right pane widths from a total width.
// Left pane gets 1/3 (minimum MinLeftWidth), right pane gets the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = totalWidth / 3
	if left < MinLeftWidth {
		left = MinLeftWidth
	}
	right = totalWidth - left
	if right < 0 {
		right = 0
	}
	return left, right
}
