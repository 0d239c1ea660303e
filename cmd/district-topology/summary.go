package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-district/pkg/parallel"
	"github.com/dd0wney/cluso-district/pkg/topology"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00FF00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// summaryRow describes one outcome.
func summaryRow(out parallel.Outcome) table.Row {
	junctions, connectors := 0, 0
	switch {
	case out.Thermal != nil:
		junctions, connectors = len(out.Thermal.Junctions), len(out.Thermal.Connectors)
	case out.Radial != nil:
		junctions, connectors = len(out.Radial.Junctions), len(out.Radial.Connectors)
	}

	status := "ok"
	if !out.OK() {
		status = topology.ErrorKind(out.Err)
	}
	return table.Row{out.Variant, out.NetworkID, fmt.Sprint(junctions), fmt.Sprint(connectors), status}
}

func renderSummary(modelID string, outcomes []parallel.Outcome, written int, sinkKind string) string {
	rows := make([]table.Row, 0, len(outcomes))
	failed := 0
	for _, out := range outcomes {
		rows = append(rows, summaryRow(out))
		if !out.OK() {
			failed++
		}
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Variant", Width: 10},
			{Title: "Network", Width: 20},
			{Title: "Junctions", Width: 9},
			{Title: "Connectors", Width: 10},
			{Title: "Status", Width: 22},
		}),
		table.WithRows(rows),
		table.WithHeight(len(rows)+2),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)
	t.Blur()

	var b strings.Builder
	b.WriteString(titleStyle.Render("District " + modelID))
	b.WriteString("\n")
	b.WriteString(t.View())
	b.WriteString("\n")
	if failed > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d of %d networks failed", failed, len(outcomes))))
	} else {
		b.WriteString(okStyle.Render(fmt.Sprintf("%d networks resolved", len(outcomes))))
	}
	b.WriteString(fmt.Sprintf("\n%d artifacts written to %s", written, sinkKind))

	for _, out := range outcomes {
		if !out.OK() {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(out.NetworkID + ": "))
			b.WriteString(out.Err.Error())
		}
	}
	return boxStyle.Render(b.String())
}
