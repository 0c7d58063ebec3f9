package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(13)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

const timeLayout = "2006-01-02 15:04"

// infoPanel summarises a flowchart in a bordered box.
func infoPanel(f *flow.Flowchart) string {
	row := func(key, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(key), value)
	}

	title := f.Title
	if title == "" {
		title = "(untitled)"
	}
	rows := []string{titleStyle.Render(title), ""}
	if f.ID != "" {
		rows = append(rows, row("ID", f.ID))
	}
	if f.Description != "" {
		rows = append(rows, row("Description", f.Description))
	}
	rows = append(rows,
		row("Nodes", fmt.Sprint(len(f.Data.Nodes))),
		row("Connections", fmt.Sprint(len(f.Data.Connections))),
	)
	for _, t := range flow.NodeTypes {
		if n := countType(f.Data.Nodes, t); n > 0 {
			rows = append(rows, row("  "+string(t), fmt.Sprint(n)))
		}
	}

	scene := flowfile.Render(f.Data.Nodes, f.Data.Connections)
	rows = append(rows, row("Export size", fmt.Sprintf("%gx%g", scene.Width, scene.Height)))

	if report := flow.Validate(f.Data); !report.OK() {
		rows = append(rows, row("Issues", fmt.Sprint(len(report.Issues))))
	}
	if !f.CreatedAt.IsZero() {
		rows = append(rows, row("Created", f.CreatedAt.Local().Format(timeLayout)))
	}
	if !f.UpdatedAt.IsZero() {
		rows = append(rows, row("Updated", f.UpdatedAt.Local().Format(timeLayout)))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func countType(nodes []flow.Node, t flow.NodeType) int {
	n := 0
	for _, node := range nodes {
		if node.Type == t {
			n++
		}
	}
	return n
}

// listTable formats stored charts as aligned columns, newest first.
func listTable(charts []flow.Flowchart) string {
	idWidth := len("ID")
	for _, f := range charts {
		if len(f.ID) > idWidth {
			idWidth = len(f.ID)
		}
	}

	var sb strings.Builder
	cell := func(s string, width int) string {
		return lipgloss.NewStyle().Width(width + 2).Render(s)
	}
	sb.WriteString(headerStyle.Render(cell("ID", idWidth) + cell("UPDATED", len(timeLayout)) + cell("NODES", 5) + "TITLE"))
	sb.WriteString("\n")
	for _, f := range charts {
		updated := "-"
		if !f.UpdatedAt.IsZero() {
			updated = f.UpdatedAt.In(time.Local).Format(timeLayout)
		}
		sb.WriteString(cell(f.ID, idWidth))
		sb.WriteString(cell(updated, len(timeLayout)))
		sb.WriteString(cell(fmt.Sprint(len(f.Data.Nodes)), 5))
		sb.WriteString(f.Title)
		sb.WriteString("\n")
	}
	return sb.String()
}
