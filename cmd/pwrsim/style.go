package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func header(title, subtitle string) string {
	var b strings.Builder
	b.WriteString(dimmer.Render("╺"+strings.Repeat("━", 40)+"╸") + "\n")
	b.WriteString("  " + cyan.Render(title))
	if subtitle != "" {
		b.WriteString("  " + dim.Render(subtitle))
	}
	b.WriteString("\n" + dimmer.Render("╺"+strings.Repeat("━", 40)+"╸") + "\n")
	return b.String()
}

func field(name string, value any) string {
	return "  " + dim.Render(fmt.Sprintf("%-24s", name)) + white.Render(fmt.Sprint(value)) + "\n"
}

func metricLines(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(field(name, fmt.Sprintf("%.6g", metrics[name])))
	}
	return b.String()
}

func scramStatus(scrammed bool, reason string) string {
	if scrammed {
		return red.Render("● scrammed") + " " + yellow.Render(reason)
	}
	return green.Render("● at power")
}
