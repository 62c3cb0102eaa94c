package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/export"
)

var sample = []core.Note{
	{
		ID: 1, Title: "Kepler's laws", Subject: "Astronomy",
		Content:   "# Orbits\n\nPlanets move in ellipses.",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	},
	{ID: 2, Title: "", Subject: "Math", Content: "a² + b² = c²"},
}

func TestMarkdown_RoundTrip(t *testing.T) {
	data, err := export.MarshalMarkdown(sample[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("---\nid: 1\n")))

	fm, body, err := export.UnmarshalMarkdown(data)
	require.NoError(t, err)
	assert.Equal(t, "Kepler's laws", fm.Title)
	assert.Equal(t, "Astronomy", fm.Subject)
	assert.True(t, sample[0].CreatedAt.Equal(fm.Created))
	assert.Equal(t, sample[0].Content+"\n", body)
}

func TestUnmarshalMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		title   string
		body    string
		wantErr bool
	}{
		{"no frontmatter", "just text\n", "", "just text\n", false},
		{"crlf", "---\r\ntitle: T\r\n---\r\nbody", "T", "body", false},
		{"rule in body", "---\ntitle: T\n---\nabove\n---\nbelow", "T", "above\n---\nbelow", false},
		{"unterminated", "---\ntitle: T\nbody", "", "", true},
		{"bad yaml", "---\ntitle: [\n---\nbody", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := export.UnmarshalMarkdown([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, fm.Title)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "1-kepler-s-laws.md", export.Filename(sample[0]))
	assert.Equal(t, "2-note.md", export.Filename(sample[1]))
}

func TestDir_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	n, err := export.WriteDir(dir, sample)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(dir, "astronomy", "1-kepler-s-laws.md"))
	assert.FileExists(t, filepath.Join(dir, "math", "2-note.md"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.md"), []byte("no header here"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.md"), []byte("---\ntitle: x\n---\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("ignored"), 0o644))

	res, err := export.ReadDir(dir, "Inbox")
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalProcessed)
	require.Len(t, res.Notes, 3)
	assert.Len(t, res.Errors, 1, "empty content fails validation")

	bySubject := map[string]core.NoteInput{}
	for _, in := range res.Notes {
		bySubject[in.Subject] = in
	}
	assert.Equal(t, "no header here", bySubject["Inbox"].Content)
	assert.Equal(t, sample[0].Content, bySubject["Astronomy"].Content)
}

func TestXLSX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, sample))

	res, err := export.ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalProcessed)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, core.NoteInput{Title: "Kepler's laws", Subject: "Astronomy", Content: sample[0].Content}, res.Notes[0])
	assert.Equal(t, "Math", res.Notes[1].Subject)
}

func TestReadXLSX_ReportsBadRows(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"ID", "Subject", "Title", "Content"},
		{"", "Biology", "Cells", "Cells are small."},
		{"", "", "No subject", "content"},
		{},
		{"", "Biology", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := export.ReadXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalProcessed)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, "Cells", res.Notes[0].Title)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Row 3")
	assert.Contains(t, res.Errors[1], "Row 5")
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := export.ReadXLSX(bytes.NewReader([]byte("plain text")))
	assert.Error(t, err)
}
