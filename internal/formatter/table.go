package formatter

import (
	"strconv"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/store"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) list(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatHooks(hooks []store.HookDefinition) (string, error) {
	if len(hooks) == 0 {
		return "No hooks found", nil
	}

	t := f.list("#", "Name", "Enabled", "Type", "Schedule", "Last Run", "Last Error")
	for i, h := range hooks {
		lastError := ""
		if h.LastError != nil {
			lastError = *h.LastError
		}
		t.Row(
			strconv.Itoa(i),
			truncateString(h.Name, 24),
			strconv.FormatBool(h.Enabled),
			h.Type,
			h.Schedule,
			formatTime(h.LastRunAt),
			truncateString(lastError, 40),
		)
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatItems(items []store.WorkItem) (string, error) {
	if len(items) == 0 {
		return "No work items found", nil
	}

	t := f.list("ID", "Title", "Source", "Updated")
	for _, item := range items {
		t.Row(
			truncateString(item.ID, 14),
			truncateString(item.Title, 48),
			item.Source(),
			formatTime(item.UpdatedAt()),
		)
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatRun(report hook.RunReport) (string, error) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("Hook", report.Name)
	t.Row("Index", strconv.Itoa(report.Index))
	t.Row("OK", strconv.FormatBool(report.OK))
	if report.OK {
		t.Row("Merged", strconv.FormatBool(report.Merged))
		t.Row("Items", strconv.Itoa(report.Count))
		t.Row("Added", strconv.Itoa(report.Added))
		t.Row("Updated", strconv.Itoa(report.Updated))
	} else {
		t.Row("Error", truncateString(report.Error, 80))
		if report.Stderr != "" {
			t.Row("Stderr", truncateString(report.Stderr, 80))
		}
	}
	if report.Duration > 0 {
		t.Row("Duration", report.Duration.Round(time.Millisecond).String())
	}

	return t.String(), nil
}

func (f *TableFormatter) FormatBatch(batch hook.BatchReport) (string, error) {
	if len(batch.Results) == 0 {
		return "No enabled hooks", nil
	}

	t := f.list("#", "Name", "OK", "Added", "Updated", "Error")
	for _, r := range batch.Results {
		t.Row(
			strconv.Itoa(r.Index),
			truncateString(r.Name, 24),
			strconv.FormatBool(r.OK),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Updated),
			truncateString(r.Error, 40),
		)
	}
	t.Row("", "total", strconv.FormatBool(batch.OK), strconv.Itoa(batch.Added), strconv.Itoa(batch.Updated), "")

	return t.String(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
