package bench

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	labelStyle      = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	cellStyle       = lipgloss.NewStyle().Width(14).Align(lipgloss.Right)
	parallelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sequentialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mismatchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// RenderTable formats samples as aligned columns.
func RenderTable(samples []Sample) string {
	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Inherit(labelStyle).Render("n"),
		headerStyle.Inherit(cellStyle).Render("parallel"),
		headerStyle.Inherit(cellStyle).Render("sequential"),
		headerStyle.Inherit(cellStyle).Render("speedup"),
		headerStyle.Inherit(cellStyle).Render("match"),
	))
	b.WriteByte('\n')
	for _, s := range samples {
		match := "ok"
		if !s.Match {
			match = mismatchStyle.Render("MISMATCH")
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(fmt.Sprint(s.N)),
			cellStyle.Render(s.Parallel.String()),
			cellStyle.Render(s.Sequential.String()),
			cellStyle.Render(fmt.Sprintf("%.2fx", s.Speedup())),
			cellStyle.Render(match),
		))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderChart draws size against time as pairs of horizontal bars, one pair
// per size, scaled so the slowest run spans width cells.
func RenderChart(samples []Sample, width int) string {
	if width < 1 {
		width = 1
	}
	var slowest time.Duration
	for _, s := range samples {
		slowest = max(slowest, s.Parallel, s.Sequential)
	}

	var b strings.Builder
	b.WriteString(parallelStyle.Render("█ parallel") + "  " + sequentialStyle.Render("█ sequential"))
	b.WriteByte('\n')
	for _, s := range samples {
		label := labelStyle.Render(fmt.Sprint(s.N))
		pad := strings.Repeat(" ", lipgloss.Width(label))
		b.WriteString(label + " " + parallelStyle.Render(bar(s.Parallel, slowest, width)) + " " + s.Parallel.String())
		b.WriteByte('\n')
		b.WriteString(pad + " " + sequentialStyle.Render(bar(s.Sequential, slowest, width)) + " " + s.Sequential.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// bar returns a run of block characters proportional to d/slowest.
// A non-zero duration always gets at least one cell.
func bar(d, slowest time.Duration, width int) string {
	if slowest <= 0 || d <= 0 {
		return ""
	}
	cells := int(float64(width) * float64(d) / float64(slowest))
	return strings.Repeat("█", max(1, cells))
}

// WriteResults dumps samples as YAML for external plotting.
func WriteResults(w io.Writer, samples []Sample) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Samples []Sample `yaml:"samples"`
	}{samples}); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return enc.Close()
}
