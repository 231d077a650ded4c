// Package cli renders run output for the terminal.
package cli

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/budget-sync/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorBorder = lipgloss.Color("#575653")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorMuted  = lipgloss.Color("#878580")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorGreen  = lipgloss.Color("#879A39")
	ColorOrange = lipgloss.Color("#DA702C")
	ColorRed    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	okStyle     = lipgloss.NewStyle().Foreground(ColorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)
	errStyle    = lipgloss.NewStyle().Foreground(ColorRed)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorBorder)
)

// RenderTitle renders a title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderStatus renders a one-line verdict.
func RenderStatus(success bool, msg string) string {
	if success {
		return okStyle.Render("✓ " + msg)
	}
	return errStyle.Render("✗ " + msg)
}

// RenderLog renders run log lines, highlighting errors and warnings.
func RenderLog(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
			b.WriteString(errStyle.Render(line))
		case strings.Contains(lower, "warning") || strings.Contains(lower, "could not") || strings.Contains(lower, "mismatch"):
			b.WriteString(warnStyle.Render(line))
		default:
			b.WriteString(mutedStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderReport renders the reconciliation counters.
func RenderReport(records int, r models.SyncReport) string {
	return RenderTable(Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Records", fmt.Sprint(records)},
			{"Groups created", fmt.Sprint(r.GroupsCreated)},
			{"Categories created", fmt.Sprint(r.SubcategoriesCreated)},
			{"Amounts set", fmt.Sprint(r.AmountsSet)},
			{"Amounts skipped", fmt.Sprint(r.AmountsSkipped)},
			{"Retries", fmt.Sprint(r.Retries)},
			{"Mismatches", fmt.Sprint(r.Mismatches)},
			{"Failed", fmt.Sprint(r.Failed)},
		},
	})
}

// RenderRuns renders recorded runs, newest first as given.
func RenderRuns(runs []models.RunRecord) string {
	if len(runs) == 0 {
		return mutedStyle.Render("No runs recorded yet.") + "\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := r.Status
		if r.ErrorKind != "" {
			status += " (" + r.ErrorKind + ")"
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.BudgetName,
			status,
			fmt.Sprint(r.Records),
			fmt.Sprint(r.GroupsCreated + r.SubcategoriesCreated),
			fmt.Sprint(r.AmountsSet),
			fmt.Sprint(r.Failures),
			r.Duration().Round(time.Second).String(),
			r.ID,
		})
	}
	return RenderTable(Table{
		Title:   "Run history",
		Headers: []string{"Started", "Budget", "Status", "Records", "Created", "Set", "Failed", "Took", "ID"},
		Rows:    rows,
	})
}

// Table is a bordered text table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders t with column widths fitted to the content.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < numCols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			b.WriteString(style.Render(" " + cell + pad + " "))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}
