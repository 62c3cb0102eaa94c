package api

import (
	"github.com/noteq/noteq/pkg/core"
)

// LoginRequest is the body of POST /login/.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Refresh  string `json:"refresh"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsPaid   bool   `json:"is_paid"`
}

// RegisterRequest is the body of POST /register/.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ResetPasswordRequest changes the password of the logged in user.
type ResetPasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,nefield=OldPassword"`
}

// ResetFromEmailRequest completes a password reset started by e-mail.
type ResetFromEmailRequest struct {
	UID         string `json:"uid" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserResponse is returned by GET /users/{id}/.
type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// Profile converts the backend user into the cached profile shape.
func (u UserResponse) Profile() core.UserProfile {
	return core.UserProfile{Name: u.Username, Email: u.Email, RegisterDate: u.CreatedAt}
}

// PaymentStatusResponse is returned by GET /payment-status/.
type PaymentStatusResponse struct {
	Status string `json:"status"`
}

// NoteRecord is a note as the backend serialises it.
type NoteRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	QuizTopicID int64  `json:"quiz_topic_id"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// QuizAndNotes is returned by GET /api/user_quiz_and_notes/.
type QuizAndNotes struct {
	Subjects []core.Subject `json:"favorite_quiz_topics"`
	Notes    []NoteRecord   `json:"favorite_notes"`
}

// CreateQuizTopicResponse is returned by POST /api/create_quiz/.
type CreateQuizTopicResponse struct {
	Message     string `json:"message"`
	QuizTopicID int64  `json:"quiz_topic_id"`
}

// GenerateQuizRequest is the body of POST /api/quiz/.
type GenerateQuizRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	Topic         string `json:"topic" validate:"required"`
	Difficulty    string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	QuestionCount int    `json:"question_count" validate:"min=1,max=15"`
}

// GenerateQuizResponse carries the generated questions.
type GenerateQuizResponse struct {
	Quiz    map[string]any  `json:"quiz"`
	Topics  []core.Question `json:"topics"`
	Message string          `json:"message"`
}

// AnswerUpdate is one answer of a batch submission.
type AnswerUpdate struct {
	ID         int64  `json:"id"`
	UserAnswer string `json:"user_answer"`
}

type submitRequest struct {
	Updates []AnswerUpdate `json:"updates"`
}

// FamiliarityRecord is one entry of GET /api/familiarity/.
type FamiliarityRecord struct {
	QuizTopic   core.Subject `json:"quiz_topic"`
	Familiarity float64      `json:"familiarity"`
}

// AddFavoriteRequest is the body of POST /api/add-favorite/.
type AddFavoriteRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Content string `json:"content" validate:"required"`
	TopicID int64  `json:"topic_id" validate:"gt=0"`
}

// CreateNoteRequest is the body of POST /api/notes/.
type CreateNoteRequest struct {
	Title     string `json:"title"`
	QuizTopic int64  `json:"quiz_topic"`
	Content   string `json:"content"`
}

// CreateNoteResponse is returned by POST /api/notes/.
type CreateNoteResponse struct {
	Message string `json:"message"`
	NoteID  int64  `json:"note_id"`
}

type updateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type moveNoteRequest struct {
	QuizTopicID int64 `json:"quiz_topic_id"`
}

// MessageResponse is the generic {"message": ...} answer.
type MessageResponse struct {
	Message string `json:"message"`
}

// GenerateTopicRequest is the body sent to the ML service.
type GenerateTopicRequest struct {
	NoteContent string `json:"note_content"`
	NoteTitle   string `json:"note_title"`
}

// GenerateTopicResponse is returned by the ML service.
type GenerateTopicResponse struct {
	Success bool   `json:"success"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
}
