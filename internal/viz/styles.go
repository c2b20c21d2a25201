package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"
)

var (
	accent = lipgloss.Color("#7fd4ff")
	dim    = lipgloss.Color("#5c6370")
	frame  = lipgloss.Color("#3b4252")

	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(frame).Padding(0, 1)
	Title = lipgloss.NewStyle().Bold(true).Foreground(accent)

	Subtle      = lipgloss.NewStyle().Foreground(dim)
	MetricLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#abb2bf"))
	MetricValue = lipgloss.NewStyle().Bold(true).Foreground(accent)

	HeaderStyle = lipgloss.NewStyle().Bold(true).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(frame)

	Active  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98c379"))
	Warning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e5c07b"))
)

// sparkLevels shade a sparkline from the smallest to the largest value.
var sparkLevels = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("#61afef")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#c678dd")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")),
}

const sparkGlyphs = "▁▂▃▄▅▆▇█"

// Metric renders "label: value".
func Metric(label, value string) string {
	return MetricLabel.Render(label+":") + " " + MetricValue.Render(value)
}

// Sparkline renders one glyph per value, scaled between the extremes.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	glyphs := []rune(sparkGlyphs)
	lo, hi := floats.Min(values), floats.Max(values)

	var b strings.Builder
	for _, v := range values {
		frac := 0.0
		if hi > lo && !math.IsNaN(v) {
			frac = (v - lo) / (hi - lo)
		}
		g := glyphs[int(frac*float64(len(glyphs)-1)+0.5)]
		level := sparkLevels[min(int(frac*float64(len(sparkLevels))), len(sparkLevels)-1)]
		b.WriteString(level.Render(string(g)))
	}
	return b.String()
}

// Separator is a dim rule of the given width, at least 8.
func Separator(width int) string {
	width = max(width, 8)
	return Subtle.Render(strings.Repeat("─", width))
}
