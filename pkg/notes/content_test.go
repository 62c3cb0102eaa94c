package notes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
)

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{`{"explanation_text": "double"}`, "double"},
		{`{'explanation_text': 'single'}`, "single"},
		{`{"explanation_text": "it's fine"}`, "it's fine"},
		{`{"explanation_text": "say \"hi\""}`, `say "hi"`},
		{`{"other": 1}`, `{"other": 1}`},
		{`{not json`, `{not json`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decodeContent(tt.in), tt.in)
	}
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "Given", titleFor("  Given ", "body"))
	assert.Equal(t, "Heading", titleFor("", "\n\n## Heading\nbody"))
	assert.Equal(t, Untitled, titleFor("", "  "))
}

func TestFromRecords(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got := fromRecords(api.QuizAndNotes{
		Subjects: []core.Subject{{ID: 7, Name: " Math "}},
		Notes: []api.NoteRecord{
			{ID: 1, Content: "x", QuizTopicID: 7, CreatedAt: "2023-12-31T10:00:00Z"},
			{ID: 2, Content: "y", QuizTopicID: 99},
		},
	}, now)
	require.Len(t, got, 2)
	assert.Equal(t, "Math", got[0].Subject)
	assert.Equal(t, 2023, got[0].CreatedAt.Year())
	assert.Equal(t, "", got[1].Subject)
	assert.Equal(t, now, got[1].CreatedAt)
}

func TestCheckDeleted(t *testing.T) {
	assert.NoError(t, checkDeleted("Quiz soft deleted successfully"))
	assert.ErrorIs(t, checkDeleted("Quiz restored successfully"), ErrNotDeleted)
	assert.ErrorIs(t, checkDeleted("ok"), ErrNotDeleted)
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, compareIDs(1, 2))
	assert.Equal(t, 1, compareIDs(-1, 2))
	assert.Equal(t, -1, compareIDs(5, -3))
	assert.Equal(t, 0, compareIDs(4, 4))
}
