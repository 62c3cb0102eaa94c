package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/noteq/noteq/pkg/core"
)

// Login exchanges credentials for a token. Concurrent logins with the same
// credentials share one request, which is retried like an idempotent call.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := core.Validate(req); err != nil {
		return LoginResponse{}, err
	}
	v, err, _ := c.logins.Do(req.Email+"\x00"+req.Password, func() (any, error) {
		var resp LoginResponse
		cl := c.backend("auth.login", http.MethodPost, "/login/")
		cl.auth, cl.in, cl.out = false, req, &resp
		cl.retry = true
		if err := c.do(ctx, cl); err != nil {
			return LoginResponse{}, err
		}
		if resp.Token == "" {
			return LoginResponse{}, fmt.Errorf("login: no token in response")
		}
		return resp, nil
	})
	return v.(LoginResponse), err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := core.Validate(req); err != nil {
		return err
	}
	cl := c.backend("auth.register", http.MethodPost, "/register/")
	cl.auth, cl.in = false, req
	return c.do(ctx, cl)
}

// ForgotPassword asks the backend to e-mail a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := core.Validate(req); err != nil {
		return err
	}
	cl := c.backend("auth.forgot_password", http.MethodPost, "/forgot-password/")
	cl.auth, cl.in = false, req
	return c.do(ctx, cl)
}

// ResetPassword changes the password of the logged in user.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := core.Validate(req); err != nil {
		return err
	}
	cl := c.backend("auth.reset_password", http.MethodPost, "/reset-password/")
	cl.in = req
	return c.do(ctx, cl)
}

// ResetPasswordFromEmail completes an e-mailed password reset.
func (c *Client) ResetPasswordFromEmail(ctx context.Context, req ResetFromEmailRequest) error {
	if err := core.Validate(req); err != nil {
		return err
	}
	cl := c.backend("auth.reset_from_email", http.MethodPost, "/reset-password-from-email/")
	cl.auth, cl.in = false, req
	return c.do(ctx, cl)
}

// User fetches a user record.
func (c *Client) User(ctx context.Context, userID string) (UserResponse, error) {
	if userID == "" {
		return UserResponse{}, core.ErrUnauthenticated
	}
	var resp UserResponse
	cl := c.backend("users.get", http.MethodGet, "/users/"+url.PathEscape(userID)+"/")
	cl.out = &resp
	err := c.do(ctx, cl)
	return resp, err
}

// PaymentStatus reports the status of a checkout.
func (c *Client) PaymentStatus(ctx context.Context, merchantTradeNo string) (PaymentStatusResponse, error) {
	var resp PaymentStatusResponse
	cl := c.backend("payment.status", http.MethodGet, "/payment-status/?merchant_trade_no="+url.QueryEscape(merchantTradeNo))
	cl.out = &resp
	err := c.do(ctx, cl)
	return resp, err
}

// QuizAndNotes returns the subjects and notes of the current user.
func (c *Client) QuizAndNotes(ctx context.Context) (QuizAndNotes, error) {
	var resp QuizAndNotes
	cl := c.backend("quiz_and_notes.list", http.MethodGet, "/api/user_quiz_and_notes/")
	cl.out = &resp
	err := c.do(ctx, cl)
	return resp, err
}

// CreateQuizTopic creates a subject. The backend answers 400 when it already exists.
func (c *Client) CreateQuizTopic(ctx context.Context, name string) (CreateQuizTopicResponse, error) {
	if name == "" {
		return CreateQuizTopicResponse{}, core.Invalid("quiz_topic", "is required")
	}
	var resp CreateQuizTopicResponse
	cl := c.backend("quiz_topic.create", http.MethodPost, "/api/create_quiz/")
	cl.in = map[string]string{"quiz_topic": name}
	cl.out = &resp
	err := c.do(ctx, cl)
	return resp, err
}

// SoftDeleteQuiz deletes a subject. The backend toggles the deleted flag, so the
// answer message tells whether the subject was deleted or restored.
func (c *Client) SoftDeleteQuiz(ctx context.Context, id int64) (MessageResponse, error) {
	var resp MessageResponse
	cl := c.backend("quiz_topic.soft_delete", http.MethodDelete, fmt.Sprintf("/api/quiz/%d/soft-delete/", id))
	cl.out = &resp
	// A replayed toggle would undo the first one.
	cl.retry = false
	err := c.do(ctx, cl)
	return resp, err
}

// GenerateQuiz asks the backend to generate questions.
func (c *Client) GenerateQuiz(ctx context.Context, req GenerateQuizRequest) (GenerateQuizResponse, error) {
	if err := core.Validate(req); err != nil {
		return GenerateQuizResponse{}, err
	}
	var resp GenerateQuizResponse
	cl := c.backend("quiz.generate", http.MethodPost, "/api/quiz/")
	cl.in, cl.out = req, &resp
	err := c.do(ctx, cl)
	return resp, err
}

// SubmitAnswers posts every answer of a quiz in one batch.
func (c *Client) SubmitAnswers(ctx context.Context, updates []AnswerUpdate) (core.SubmitResult, error) {
	if len(updates) == 0 {
		return core.SubmitResult{}, core.Invalid("updates", "at least one answer is required")
	}
	var resp core.SubmitResult
	cl := c.backend("quiz.submit", http.MethodPost, "/api/submit_answer/")
	cl.in, cl.out = submitRequest{Updates: updates}, &resp
	err := c.do(ctx, cl)
	return resp, err
}

// Familiarity lists the familiarity of the user per subject.
func (c *Client) Familiarity(ctx context.Context) ([]FamiliarityRecord, error) {
	var resp []FamiliarityRecord
	cl := c.backend("familiarity.list", http.MethodGet, "/api/familiarity/")
	cl.out = &resp
	err := c.do(ctx, cl)
	return resp, err
}

// AddFavorite bookmarks a question.
func (c *Client) AddFavorite(ctx context.Context, req AddFavoriteRequest) error {
	if err := core.Validate(req); err != nil {
		return err
	}
	cl := c.backend("favorite.add", http.MethodPost, "/api/add-favorite/")
	cl.in = req
	return c.do(ctx, cl)
}

// CreateNote stores a note under a subject and returns its ID.
func (c *Client) CreateNote(ctx context.Context, req CreateNoteRequest) (CreateNoteResponse, error) {
	if req.Content == "" {
		return CreateNoteResponse{}, core.Invalid("content", "is required")
	}
	if req.QuizTopic <= 0 {
		return CreateNoteResponse{}, core.Invalid("quiz_topic", "is required")
	}
	var resp CreateNoteResponse
	cl := c.backend("notes.create", http.MethodPost, "/api/notes/")
	cl.in, cl.out = req, &resp
	err := c.do(ctx, cl)
	return resp, err
}

// UpdateNote replaces the title and content of a note.
func (c *Client) UpdateNote(ctx context.Context, id int64, title, content string) error {
	cl := c.backend("notes.update", http.MethodPatch, fmt.Sprintf("/api/notes/%d/", id))
	cl.in = updateNoteRequest{Title: title, Content: content}
	return c.do(ctx, cl)
}

// MoveNote assigns a note to another subject.
func (c *Client) MoveNote(ctx context.Context, id, subjectID int64) error {
	cl := c.backend("notes.move", http.MethodPatch, fmt.Sprintf("/api/notes/%d/", id))
	cl.in = moveNoteRequest{QuizTopicID: subjectID}
	return c.do(ctx, cl)
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	cl := c.backend("notes.delete", http.MethodDelete, fmt.Sprintf("/api/notes/%d/", id))
	return c.do(ctx, cl)
}

// GenerateTopicFromNote asks the ML service for a quiz topic summarising a note.
func (c *Client) GenerateTopicFromNote(ctx context.Context, req GenerateTopicRequest) (GenerateTopicResponse, error) {
	if req.NoteContent == "" {
		return GenerateTopicResponse{}, core.Invalid("note_content", "is required")
	}
	var resp GenerateTopicResponse
	cl := call{
		name:   "ml.generate_topic",
		method: http.MethodPost,
		base:   c.config.MLURL,
		path:   "/api/generate_topic_from_note",
		in:     req,
		out:    &resp,
		auth:   true,
	}
	if err := c.do(ctx, cl); err != nil {
		return GenerateTopicResponse{}, err
	}
	if !resp.Success || resp.Topic == "" {
		msg := resp.Message
		if msg == "" {
			msg = "no topic generated"
		}
		return resp, fmt.Errorf("generate topic: %s", msg)
	}
	return resp, nil
}
