package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary   = lipgloss.Color("#7C3AED")
	secondary = lipgloss.Color("#06B6D4")
	success   = lipgloss.Color("#10B981")
	warning   = lipgloss.Color("#F59E0B")
	danger    = lipgloss.Color("#EF4444")
	muted     = lipgloss.Color("#64748B")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(secondary)
	labelStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success)
	errorStyle   = lipgloss.NewStyle().Foreground(danger)
	spinnerStyle = lipgloss.NewStyle().Foreground(primary)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondary).
			PaddingRight(2)

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

func statusDot(status string) string {
	switch status {
	case "completed", "ok":
		return lipgloss.NewStyle().Foreground(success).Render("●")
	case "failed", "error":
		return lipgloss.NewStyle().Foreground(danger).Render("●")
	default:
		return lipgloss.NewStyle().Foreground(warning).Render("●")
	}
}

// table renders rows in aligned columns
func table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(cellStyle.Width(widths[i] + 2).Render(cell))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func field(name string, value any) string {
	return fmt.Sprintf("%s %v", labelStyle.Render(name+":"), value)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
