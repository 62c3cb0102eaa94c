// Package quiz drives one quiz attempt from topic selection to results.
//
// The attempt lives in session storage (quizData, userAnswers, quizProgress,
// familiarity) so a later process can Resume it.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/noteq/noteq/pkg/api"
	"github.com/noteq/noteq/pkg/core"
)

// Stage is a step of the quiz flow.
type Stage string

const (
	StageTopicSelection Stage = "topic-selection"
	StageAnswering      Stage = "answering"
	StageSubmitting     Stage = "submitting"
	StageResults        Stage = "results"
)

// MaxQuestions is the largest quiz the backend generates.
const MaxQuestions = 15

// StartRequest describes the quiz to generate.
type StartRequest struct {
	Topic      string `validate:"required"`
	Difficulty string `validate:"required,oneof=easy medium hard"`
	Count      int    `validate:"min=1,max=15"`
}

// Flow is the quiz state machine. It is safe for concurrent use.
type Flow struct {
	client  *api.Client
	local   core.Store
	session core.Store
	logger  *slog.Logger

	mu          sync.Mutex
	stage       Stage
	quiz        core.QuizSession
	answers     []core.UserAnswer
	index       int
	familiarity float64
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// New creates a Flow in the topic selection stage.
func New(client *api.Client, local, session core.Store, opts ...Option) *Flow {
	f := &Flow{
		client:  client,
		local:   local,
		session: session,
		logger:  slog.Default(),
		stage:   StageTopicSelection,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stage returns the current stage.
func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// PendingTopic consumes the topic staged by a note, if any.
func (f *Flow) PendingTopic(ctx context.Context) (string, bool, error) {
	topic, ok, err := f.session.Get(ctx, core.KeyGeneratedTopic)
	if err != nil || !ok || topic == "" {
		return "", false, err
	}
	for _, key := range []string{core.KeyGeneratedTopic, core.KeyGeneratedTopicSource, core.KeyGeneratedTopicNoteID} {
		if err := f.session.Delete(ctx, key); err != nil {
			return "", false, err
		}
	}
	return topic, true, nil
}

// Start validates the request, makes sure the quiz topic exists and generates
// the questions. An empty topic is taken from a staged generated topic.
func (f *Flow) Start(ctx context.Context, req StartRequest) error {
	req.Topic = strings.TrimSpace(req.Topic)
	req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	if req.Topic == "" {
		topic, ok, err := f.PendingTopic(ctx)
		if err != nil {
			return err
		}
		if ok {
			req.Topic = topic
		}
	}
	if err := core.Validate(req); err != nil {
		return err
	}
	sess, err := core.CurrentSession(ctx, f.local)
	if err != nil {
		return err
	}

	topicID := f.ensureTopic(ctx, req.Topic)

	resp, err := f.client.GenerateQuiz(ctx, api.GenerateQuizRequest{
		UserID:        sess.UserID,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionCount: req.Count,
	})
	if err != nil {
		return fmt.Errorf("failed to generate quiz: %w", err)
	}
	if len(resp.Topics) == 0 {
		return fmt.Errorf("failed to generate quiz: no questions returned")
	}

	qs := core.QuizSession{
		Quiz:          resp.Quiz,
		Topics:        resp.Topics,
		QuestionCount: req.Count,
		CreatedTopic:  req.Topic,
		TopicID:       topicID,
	}
	for _, key := range []string{core.KeyUserAnswers, core.KeyFamiliarity, core.KeyQuizProgress} {
		if err := f.session.Delete(ctx, key); err != nil {
			return err
		}
	}
	if err := core.SetJSON(ctx, f.session, core.KeyQuizData, qs); err != nil {
		return err
	}

	f.mu.Lock()
	f.quiz = qs
	f.answers = nil
	f.index = 0
	f.familiarity = 0
	f.stage = StageAnswering
	f.mu.Unlock()

	f.logger.Info("quiz started", "topic", req.Topic, "difficulty", req.Difficulty, "questions", len(qs.Topics))
	return nil
}

// ensureTopic creates the quiz topic, resolving the id of an existing one.
// Failures are logged and the quiz goes on without an id.
func (f *Flow) ensureTopic(ctx context.Context, name string) int64 {
	created, err := f.client.CreateQuizTopic(ctx, name)
	if err == nil {
		return created.QuizTopicID
	}
	if core.StatusCode(err) != http.StatusBadRequest {
		f.logger.Warn("failed to create quiz topic", "topic", name, "error", err)
		return 0
	}
	all, err := f.client.QuizAndNotes(ctx)
	if err != nil {
		f.logger.Warn("failed to resolve existing quiz topic", "topic", name, "error", err)
		return 0
	}
	for _, s := range all.Subjects {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return s.ID
		}
	}
	return 0
}

// Current returns the question being answered and its 1-based position.
func (f *Flow) Current() (core.Question, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageAnswering {
		return core.Question{}, 0, fmt.Errorf("no question in stage %s: %w", f.stage, core.ErrInvalidState)
	}
	return f.quiz.Topics[f.index], f.index + 1, nil
}

// Total returns the number of questions of the attempt.
func (f *Flow) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.quiz.Topics)
}

// Answer records the selected option (A-D) for the current question and moves
// to the next one. On the last question the flow stays put and Complete becomes
// available.
func (f *Flow) Answer(ctx context.Context, option string) error {
	option = strings.ToUpper(strings.TrimSpace(option))
	if len(option) != 1 || option < "A" || option > "D" {
		return core.Invalid("option", "must be one of A, B, C or D")
	}

	f.mu.Lock()
	if f.stage != StageAnswering {
		f.mu.Unlock()
		return fmt.Errorf("cannot answer in stage %s: %w", f.stage, core.ErrInvalidState)
	}
	q := f.quiz.Topics[f.index]
	a := core.UserAnswer{TopicID: q.ID, Selected: option}
	replaced := false
	for i := range f.answers {
		if f.answers[i].TopicID == q.ID {
			f.answers[i] = a
			replaced = true
		}
	}
	if !replaced {
		f.answers = append(f.answers, a)
	}
	if f.index < len(f.quiz.Topics)-1 {
		f.index++
	}
	answers := append([]core.UserAnswer(nil), f.answers...)
	index := f.index
	f.mu.Unlock()

	if err := core.SetJSON(ctx, f.session, core.KeyUserAnswers, answers); err != nil {
		return err
	}
	return core.SetJSON(ctx, f.session, core.KeyQuizProgress, index)
}

// Back returns to the previous question so its answer can be changed.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	if f.stage != StageAnswering || f.index == 0 {
		f.mu.Unlock()
		return fmt.Errorf("no previous question: %w", core.ErrInvalidState)
	}
	f.index--
	index := f.index
	f.mu.Unlock()
	return core.SetJSON(ctx, f.session, core.KeyQuizProgress, index)
}

// CanComplete reports whether every question has been answered.
func (f *Flow) CanComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage == StageAnswering && len(f.answers) == len(f.quiz.Topics)
}

// Complete submits every answer in one batch and moves to the results. A
// failed submission is logged and recorded with a familiarity of 0.
func (f *Flow) Complete(ctx context.Context) (Results, error) {
	f.mu.Lock()
	if f.stage != StageAnswering || len(f.answers) != len(f.quiz.Topics) {
		answered, total := len(f.answers), len(f.quiz.Topics)
		f.mu.Unlock()
		return Results{}, fmt.Errorf("%d of %d questions answered: %w", answered, total, core.ErrInvalidState)
	}
	f.stage = StageSubmitting
	answers := append([]core.UserAnswer(nil), f.answers...)
	f.mu.Unlock()

	updates := make([]api.AnswerUpdate, 0, len(answers))
	for _, a := range answers {
		updates = append(updates, api.AnswerUpdate{ID: a.TopicID, UserAnswer: a.Selected})
	}
	familiarity := 0.0
	res, err := f.client.SubmitAnswers(ctx, updates)
	if err != nil {
		f.logger.Warn("failed to submit answers", "answers", len(updates), "error", err)
	} else {
		familiarity = res.Familiarity
	}

	f.mu.Lock()
	f.familiarity = familiarity
	f.stage = StageResults
	f.mu.Unlock()

	if err := core.SetJSON(ctx, f.session, core.KeyUserAnswers, answers); err != nil {
		return Results{}, err
	}
	if err := core.SetJSON(ctx, f.session, core.KeyFamiliarity, familiarity); err != nil {
		return Results{}, err
	}
	return f.Results()
}

// Resume rebuilds the attempt from session storage.
func (f *Flow) Resume(ctx context.Context) error {
	var qs core.QuizSession
	ok, err := core.GetJSON(ctx, f.session, core.KeyQuizData, &qs)
	if err != nil {
		return err
	}
	if !ok || len(qs.Topics) == 0 {
		return core.ErrNoQuiz
	}
	var answers []core.UserAnswer
	if _, err := core.GetJSON(ctx, f.session, core.KeyUserAnswers, &answers); err != nil {
		return err
	}
	index := len(answers)
	if _, err := core.GetJSON(ctx, f.session, core.KeyQuizProgress, &index); err != nil {
		return err
	}
	index = max(0, min(index, len(qs.Topics)-1))
	var familiarity float64
	done, err := core.GetJSON(ctx, f.session, core.KeyFamiliarity, &familiarity)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.quiz = qs
	f.answers = answers
	f.index = index
	f.familiarity = familiarity
	f.stage = StageAnswering
	if done && len(answers) == len(qs.Topics) {
		f.stage = StageResults
	}
	return nil
}

// AddFavorite bookmarks a question explanation as a note.
func (f *Flow) AddFavorite(ctx context.Context, questionID int64, content string) error {
	sess, err := core.CurrentSession(ctx, f.local)
	if err != nil {
		return err
	}
	return f.client.AddFavorite(ctx, api.AddFavoriteRequest{UserID: sess.UserID, Content: content, TopicID: questionID})
}

// FlowState is the observable state of a Flow.
type FlowState struct {
	Stage    Stage  `json:"stage"`
	Topic    string `json:"topic,omitempty"`
	Question int    `json:"question"`
	Total    int    `json:"total"`
	Answered int    `json:"answered"`
}

// State implements introspection.Introspectable.
func (f *Flow) State() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FlowState{Stage: f.stage, Topic: f.quiz.CreatedTopic, Total: len(f.quiz.Topics), Answered: len(f.answers)}
	if st.Total > 0 {
		st.Question = f.index + 1
	}
	return st
}

// ComponentType implements introspection.Component.
func (f *Flow) ComponentType() string {
	return "quiz_flow"
}

var _ introspection.Introspectable = (*Flow)(nil)
var _ introspection.Component = (*Flow)(nil)
