package notes

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
	"github.com/noteq/noteq/pkg/markdown"
)

// Untitled is the title of a note without title or content.
const Untitled = "Untitled note"

// decodeContent unwraps notes saved from a quiz explanation. Those were stored as
// a JSON object, sometimes with single quotes, carrying "explanation_text".
// Plain text is returned unchanged.
func decodeContent(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}
	if text, ok := explanationText(trimmed); ok {
		return text
	}
	// Legacy notes were written with single quoted keys and values.
	if text, ok := explanationText(strings.ReplaceAll(trimmed, "'", `"`)); ok {
		return text
	}
	return raw
}

func explanationText(s string) (string, bool) {
	var obj struct {
		ExplanationText string `json:"explanation_text"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj.ExplanationText == "" {
		return "", false
	}
	return obj.ExplanationText, true
}

// titleFor picks the title, the first content line or Untitled.
func titleFor(title, content string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if first := markdown.FirstLine(content); first != "" {
		return first
	}
	return Untitled
}

func parseTime(s string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}

// fromRecords converts the backend payload into notes, resolving subjects by id.
func fromRecords(data api.QuizAndNotes, now time.Time) []core.Note {
	names := make(map[int64]string, len(data.Subjects))
	for _, s := range data.Subjects {
		names[s.ID] = strings.TrimSpace(s.Name)
	}
	out := make([]core.Note, 0, len(data.Notes))
	for _, r := range data.Notes {
		content := decodeContent(r.Content)
		out = append(out, core.Note{
			ID:        r.ID,
			Title:     titleFor(r.Title, content),
			Content:   content,
			Subject:   names[r.QuizTopicID],
			CreatedAt: parseTime(r.CreatedAt, now),
			UpdatedAt: parseTime(r.UpdatedAt, now),
		})
	}
	return out
}
