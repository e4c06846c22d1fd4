package tui

import (
	"fmt"

	"levels/internal/capture"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// RenderDevices renders devices as a table, the default device highlighted
// and marked with "*". It only builds a string; the terminal is untouched.
func RenderDevices(devices []capture.Device) string {
	if len(devices) == 0 {
		return faintStyle.Render("No capture devices found.")
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		marker := ""
		if d.Default {
			marker = "*"
		}
		channels := "-"
		if d.MaxInputChannels > 0 {
			channels = fmt.Sprintf("%d", d.MaxInputChannels)
		}
		rate := "-"
		if d.DefaultSampleRate > 0 {
			rate = fmt.Sprintf("%.0f Hz", d.DefaultSampleRate)
		}
		rows = append(rows, []string{marker, d.ID, d.Name, channels, rate})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(faintStyle).
		Headers("", "ID", "NAME", "CHANNELS", "RATE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return titleStyle
			case devices[row].Default:
				return highlightStyle.Padding(0, 1)
			default:
				return cellStyle
			}
		})

	return t.String()
}
