package cli

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daystreak/internal/constants"
	"github.com/julianstephens/daystreak/internal/models"
)

// heatLevels shades DayBucket.Level 0..4.
var heatLevels = [5]lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("237")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("22")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
}

var weekdayLabels = [7]string{"Mon", "   ", "Wed", "   ", "Fri", "   ", "Sun"}

func heatCell(level int) string {
	if level == 0 {
		return heatLevels[0].Render("·")
	}
	return heatLevels[level].Render("■")
}

// RenderHeatmap lays buckets (oldest first, consecutive days) out as a grid
// with one row per weekday and one column per Monday-anchored week.
func RenderHeatmap(buckets []models.DayBucket) string {
	if len(buckets) == 0 {
		return ""
	}
	first, err := time.Parse(constants.DateFormat, buckets[0].DayKey)
	if err != nil {
		return ""
	}
	offset := (int(first.Weekday()) + 6) % 7
	weeks := (offset + len(buckets) + 6) / 7

	var b strings.Builder
	for row := 0; row < 7; row++ {
		b.WriteString(weekdayLabels[row])
		for col := 0; col < weeks; col++ {
			b.WriteString(" ")
			i := col*7 + row - offset
			if i < 0 || i >= len(buckets) {
				b.WriteString(" ")
				continue
			}
			b.WriteString(heatCell(buckets[i].Level()))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n    Less")
	for level := range heatLevels {
		b.WriteString(" " + heatCell(level))
	}
	b.WriteString(" More\n")
	return b.String()
}
