// package formatter renders task and run data for humans (styled tables,
// summaries) and machines (CSV export).
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/bitsync/internal/store"
	"github.com/desertthunder/bitsync/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
	border lipgloss.Style
}

func NewPalette(t, s, e, w, d string) *Palette {
	return &Palette{
		title:  NewBold(t),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		dim:    NewStyle(d),
		header: NewBold(t).Padding(0, 1),
		border: NewStyle(d),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

// ExportToCSV converts fetched tasks to CSV with one row per task
func ExportToCSV(items []tasks.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"task_id", "biz_task_id", "app", "scene", "status", "user_id", "user_name",
		"item_id", "book_id", "url", "date", "group_id", "device_serial",
		"start_at", "end_at", "elapsed_seconds", "items_collected", "retry_count",
		"record_id",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range items {
		record := []string{
			strconv.Itoa(t.TaskID),
			t.BizTaskID,
			t.App,
			t.Scene,
			t.Status,
			t.UserID,
			t.UserName,
			t.ItemID,
			t.BookID,
			t.URL,
			t.Date,
			t.GroupID,
			t.DeviceSerial,
			t.StartAt,
			t.EndAt,
			t.ElapsedSeconds,
			t.ItemsCollected,
			t.RetryCount,
			t.RecordID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteCSVExport writes the fetched tasks to a CSV file.
//
// Defaults to tasks.csv when no path is given.
func WriteCSVExport(items []tasks.Task, filepath string) (string, error) {
	if filepath == "" {
		filepath = "tasks.csv"
	}

	csvData, err := ExportToCSV(items)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// RenderTaskTable renders fetched tasks as a bordered terminal table
func RenderTaskTable(items []tasks.Task) string {
	tbl := newTable("ID", "App", "Scene", "Status", "User", "Item", "Date")
	for _, t := range items {
		item := t.ItemID
		if item == "" {
			item = t.BookID
		}
		if item == "" {
			item = truncate(t.URL, 32)
		}
		tbl.Row(
			strconv.Itoa(t.TaskID),
			truncate(t.App, 24),
			truncate(t.Scene, 20),
			t.Status,
			truncate(t.UserName, 20),
			truncate(item, 32),
			t.Date,
		)
	}
	return tbl.Render() + "\n" + styles.dim.Render(fmt.Sprintf("%d task(s)", len(items))) + "\n"
}

// RenderRunTable renders recorded runs as a bordered terminal table
func RenderRunTable(runs []store.Run) string {
	tbl := newTable("When", "Command", "Table", "Count", "Skipped", "Failed", "Elapsed")
	for _, r := range runs {
		tbl.Row(
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Command,
			truncate(r.TableID, 24),
			strconv.Itoa(r.Count),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			fmt.Sprintf("%.1fs", r.ElapsedSeconds),
		)
	}
	return tbl.Render() + "\n"
}

// RenderCreateSummary renders a write-path summary with colored counters
func RenderCreateSummary(summary *tasks.CreateSummary) string {
	return renderSummary("Created", summary.Created, summary.Requested,
		summary.Skipped, summary.Failed, summary.Errors, summary.ElapsedSeconds)
}

// RenderUpdateSummary renders an update-path summary with colored counters
func RenderUpdateSummary(summary *tasks.UpdateSummary) string {
	return renderSummary("Updated", summary.Updated, summary.Requested,
		summary.Skipped, summary.Failed, summary.Errors, summary.ElapsedSeconds)
}

func renderSummary(verb string, done, requested, skipped, failed int, errs []string, elapsed float64) string {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render(fmt.Sprintf("%s %d/%d", verb, done, requested)))
	buf.WriteString("\n")
	if skipped > 0 {
		buf.WriteString(styles.warn.Render(fmt.Sprintf("Skipped: %d", skipped)))
		buf.WriteString("\n")
	}
	if failed > 0 {
		buf.WriteString(styles.err.Render(fmt.Sprintf("Failed: %d", failed)))
		buf.WriteString("\n")
	} else {
		buf.WriteString(styles.ok.Render("No failures"))
		buf.WriteString("\n")
	}
	for _, e := range errs {
		buf.WriteString(styles.err.Render("  " + e))
		buf.WriteString("\n")
	}
	buf.WriteString(styles.dim.Render(fmt.Sprintf("Elapsed: %.2fs", elapsed)))
	buf.WriteString("\n")

	return buf.String()
}
