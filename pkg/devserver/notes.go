package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func (s *Server) createNote(c *gin.Context) {
	var req struct {
		Title     string `json:"title"`
		QuizTopic int64  `json:"quiz_topic"`
		Content   string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.QuizTopic == 0 || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quiz_topic and content are required"})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subjects[req.QuizTopic]
	if sub == nil || sub.Owner != owner || sub.Deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Quiz with ID %d not found", req.QuizTopic)})
		return
	}
	now := s.now()
	n := &note{ID: s.id(), Owner: owner, SubjectID: sub.ID, Title: req.Title, Content: req.Content, CreatedAt: now, UpdatedAt: now}
	s.notes[n.ID] = n
	c.JSON(http.StatusCreated, gin.H{"message": "Note created successfully", "note_id": n.ID})
}

func (s *Server) updateNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Content     *string `json:"content"`
		QuizTopicID *int64  `json:"quiz_topic_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notes[id]
	if n == nil || n.Owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Note with ID %d not found", id)})
		return
	}

	if req.QuizTopicID != nil {
		sub := s.subjects[*req.QuizTopicID]
		if sub == nil || sub.Owner != owner || sub.Deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Quiz topic with ID %d not found", *req.QuizTopicID)})
			return
		}
		n.SubjectID = sub.ID
		n.UpdatedAt = s.now()
		c.JSON(http.StatusOK, gin.H{"message": "Note topic updated successfully"})
		return
	}

	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if req.Title == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	n.Title = *req.Title
	n.Content = *req.Content
	n.UpdatedAt = s.now()
	c.JSON(http.StatusOK, gin.H{"message": "Note updated successfully", "id": n.ID})
}

func (s *Server) deleteNote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notes[id]
	if n == nil || n.Owner != currentUser(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Note with ID %d not found", id)})
		return
	}
	delete(s.notes, id)
	c.Status(http.StatusNoContent)
}

// generateTopic stands in for the ML service: the title, or the first words of the content.
func (s *Server) generateTopic(c *gin.Context) {
	var req struct {
		NoteContent string `json:"note_content"`
		NoteTitle   string `json:"note_title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.NoteContent) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "note_content is required"})
		return
	}
	topic := strings.TrimSpace(req.NoteTitle)
	if topic == "" {
		words := strings.Fields(req.NoteContent)
		if len(words) > 5 {
			words = words[:5]
		}
		topic = strings.Join(words, " ")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "topic": topic, "message": "Topic generated"})
}
