package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/noteq/noteq/pkg/core"
)

// SheetName is the worksheet notes are written to.
const SheetName = "Notes"

var header = []string{"ID", "Subject", "Title", "Content", "Created", "Updated"}

// Columns read back on import (0-based).
const (
	colSubject = 1
	colTitle   = 2
	colContent = 3
)

// ImportResult holds the outcome of an import.
type ImportResult struct {
	TotalProcessed int
	Notes          []core.NoteInput
	Errors         []string
}

// WriteXLSX writes notes as a workbook with one row per note.
func WriteXLSX(w io.Writer, notes []core.Note) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	rows := make([][]any, 0, len(notes)+1)
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	rows = append(rows, head)
	for _, n := range notes {
		rows = append(rows, []any{
			n.ID, n.Subject, n.Title, n.Content,
			formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
		})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(SheetName, "D", "D", 80); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ReadXLSX reads notes from the Notes sheet (or the first sheet). The first row
// is a header. Rows that fail validation are reported and skipped.
func ReadXLSX(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if name == SheetName {
			sheet = name
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	res := &ImportResult{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if isBlank(row) {
			continue
		}
		res.TotalProcessed++
		in := core.NoteInput{
			Subject: cell(row, colSubject),
			Title:   cell(row, colTitle),
			Content: cell(row, colContent),
		}
		if err := core.Validate(in); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		res.Notes = append(res.Notes, in)
	}
	return res, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
