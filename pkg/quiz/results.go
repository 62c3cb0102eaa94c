package quiz

import (
	"fmt"
	"strings"

	"github.com/noteq/noteq/pkg/core"
)

// Item is one scored question.
type Item struct {
	Question core.Question
	Selected string
	Correct  bool
}

// Results summarises a finished attempt.
type Results struct {
	Topic       string
	Items       []Item
	Correct     int
	Familiarity float64
}

// Score returns the share of correct answers in percent.
func (r Results) Score() float64 {
	if len(r.Items) == 0 {
		return 0
	}
	return float64(r.Correct) / float64(len(r.Items)) * 100
}

// Results scores the answers against the expected ones.
func (f *Flow) Results() (Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageResults {
		return Results{}, fmt.Errorf("no results in stage %s: %w", f.stage, core.ErrInvalidState)
	}

	selected := make(map[int64]string, len(f.answers))
	for _, a := range f.answers {
		selected[a.TopicID] = a.Selected
	}
	r := Results{Topic: f.quiz.CreatedTopic, Familiarity: f.familiarity}
	for _, q := range f.quiz.Topics {
		sel := selected[q.ID]
		ok := sel != "" && strings.EqualFold(sel, strings.TrimSpace(q.AIAnswer))
		if ok {
			r.Correct++
		}
		r.Items = append(r.Items, Item{Question: q, Selected: sel, Correct: ok})
	}
	return r, nil
}
