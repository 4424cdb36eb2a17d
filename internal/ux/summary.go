// Package ux renders human-readable CLI output.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gcbaptista/go-letor/model"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorBorder = lipgloss.Color("#16858E")
	colorMuted  = lipgloss.Color("#5C7A84")
	colorError  = lipgloss.Color("#E74C3C")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	keyStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)
)

// Option is one labelled value in an options summary.
type Option struct {
	Name  string
	Value any
}

// Options renders a titled box listing the options a command will run with.
func Options(title string, opts []Option) string {
	width := 0
	for _, o := range opts {
		width = max(width, len(o.Name))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, o := range opts {
		b.WriteString("\n")
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-*s", width, o.Name)))
		b.WriteString("  ")
		b.WriteString(formatValue(o.Value))
	}
	return boxStyle.Render(b.String())
}

// Partition renders per-subset group and record counts.
func Partition(summary *model.PartitionSummary) string {
	rows := [][]string{{"subset", "groups", "records", "path"}}
	for _, s := range summary.Subsets {
		name := string(s.Name)
		if s.Fold != nil {
			name = fmt.Sprintf("fold%d/%s", *s.Fold, s.Name)
		}
		rows = append(rows, []string{name, fmt.Sprint(s.GroupCount), fmt.Sprint(s.RecordCount), s.Path})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %d records in %d groups", summary.Operation, summary.RecordCount, summary.GroupCount)))
	for i, row := range rows {
		b.WriteString("\n")
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprintf("%-*s", widths[j], cell)
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if i == 0 {
			line = keyStyle.Render(line)
		}
		b.WriteString(line)
	}
	return boxStyle.Render(b.String())
}

// Error renders a one-line error message.
func Error(err error) string {
	return errorStyle.Render("error:") + " " + err.Error()
}

// Print writes a rendered block followed by a newline.
func Print(w io.Writer, block string) {
	_, _ = fmt.Fprintln(w, block)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case []string:
		if len(t) == 0 {
			return "-"
		}
		return strings.Join(t, ", ")
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
