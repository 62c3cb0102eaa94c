// Package core holds the domain types shared by every NoteQ component.
package core

import "time"

// Note is a user note owned by the backend. The client only holds a transient copy.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteInput carries the user editable fields of a note.
type NoteInput struct {
	Title   string `json:"title" yaml:"title" validate:"max=255"`
	Content string `json:"content" yaml:"-" validate:"required"`
	Subject string `json:"subject" yaml:"subject" validate:"required"`
}

// Subject is a quiz topic that groups notes. The backend calls it "quiz_topic".
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"quiz_topic"`
}

// Question is one generated multiple choice question (a backend "topic").
type Question struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	OptionA         string `json:"option_A"`
	OptionB         string `json:"option_B"`
	OptionC         string `json:"option_C"`
	OptionD         string `json:"option_D"`
	AIAnswer        string `json:"Ai_answer"`
	ExplanationText string `json:"explanation_text"`
}

// Option returns the text of the option with the given letter (A-D).
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// Options returns the four options in display order.
func (q Question) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// QuizSession is persisted in session storage for the duration of a quiz attempt.
type QuizSession struct {
	Quiz          map[string]any `json:"quiz,omitempty"`
	Topics        []Question     `json:"topics"`
	QuestionCount int            `json:"question_count"`
	CreatedTopic  string         `json:"created_topic,omitempty"`
	TopicID       int64          `json:"topic_id,omitempty"`
}

// UserAnswer is accumulated during a quiz and submitted in bulk at completion.
type UserAnswer struct {
	TopicID  int64  `json:"topicId"`
	Selected string `json:"selected"`
}

// UserProfile is cached in local storage with a timestamp.
type UserProfile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	RegisterDate string `json:"registerDate"`
}

// Familiarity is the backend computed proficiency for one quiz topic.
type Familiarity struct {
	Name        string  `json:"name"`
	Familiarity float64 `json:"familiarity"`
	QuizID      int64   `json:"quizId,omitempty"`
}

// Session is the authenticated state kept in local storage.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	IsPaid bool   `json:"is_paid"`
}

// SubmitResult is returned by the batch answer submission.
type SubmitResult struct {
	Familiarity       float64 `json:"familiarity"`
	QuizTopicID       int64   `json:"quiz_topic_id,omitempty"`
	DifficultyLevel   string  `json:"difficulty_level,omitempty"`
	DifficultyCap     string  `json:"difficulty_cap,omitempty"`
	AlreadyReachedCap bool    `json:"already_reached_cap"`
	Updated           bool    `json:"updated"`
}
