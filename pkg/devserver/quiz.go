package devserver

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

var answerLetters = [4]string{"A", "B", "C", "D"}

// subjectByName must be called with s.mu held.
func (s *Server) subjectByName(owner int64, name string) *subject {
	for _, sub := range s.subjects {
		if sub.Owner == owner && strings.EqualFold(sub.Name, name) {
			return sub
		}
	}
	return nil
}

func (s *Server) ownedSubjects(owner int64) []*subject {
	var out []*subject
	for _, sub := range s.subjects {
		if sub.Owner == owner && !sub.Deleted {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) quizAndNotes(c *gin.Context) {
	owner := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := make([]gin.H, 0)
	live := make(map[int64]bool)
	for _, sub := range s.ownedSubjects(owner) {
		live[sub.ID] = true
		subjects = append(subjects, gin.H{"id": sub.ID, "quiz_topic": sub.Name})
	}

	var owned []*note
	for _, n := range s.notes {
		if n.Owner == owner && live[n.SubjectID] {
			owned = append(owned, n)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	notes := make([]gin.H, 0, len(owned))
	for _, n := range owned {
		notes = append(notes, gin.H{
			"id":            n.ID,
			"title":         n.Title,
			"content":       n.Content,
			"quiz_topic_id": n.SubjectID,
			"created_at":    n.CreatedAt.Format(timeLayout),
			"updated_at":    n.UpdatedAt.Format(timeLayout),
		})
	}
	c.JSON(http.StatusOK, gin.H{"favorite_quiz_topics": subjects, "favorite_notes": notes})
}

func (s *Server) createQuizTopic(c *gin.Context) {
	var req struct {
		QuizTopic string `json:"quiz_topic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.QuizTopic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quiz_topic is required"})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sub := s.subjectByName(owner, req.QuizTopic); sub != nil {
		if !sub.Deleted {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Quiz with topic %q already exists", req.QuizTopic)})
			return
		}
		sub.Deleted = false
		c.JSON(http.StatusCreated, gin.H{"message": "Quiz topic restored", "quiz_topic_id": sub.ID})
		return
	}
	sub := &subject{ID: s.id(), Owner: owner, Name: strings.TrimSpace(req.QuizTopic)}
	s.subjects[sub.ID] = sub
	c.JSON(http.StatusCreated, gin.H{"message": "Quiz topic created successfully", "quiz_topic_id": sub.ID})
}

func (s *Server) softDeleteQuiz(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subjects[id]
	if sub == nil || sub.Owner != currentUser(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Quiz with ID %d not found", id)})
		return
	}
	sub.Deleted = !sub.Deleted
	if sub.Deleted {
		c.JSON(http.StatusOK, gin.H{"message": "Quiz soft deleted successfully"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quiz restored successfully"})
}

func (s *Server) generateQuiz(c *gin.Context) {
	var req struct {
		UserID        string `json:"user_id"`
		Topic         string `json:"topic"`
		Difficulty    string `json:"difficulty"`
		QuestionCount int    `json:"question_count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Topic == "" || req.QuestionCount < 1 || req.QuestionCount > 15 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic and a question_count between 1 and 15 are required"})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subjectByName(owner, req.Topic)
	if sub == nil {
		sub = &subject{ID: s.id(), Owner: owner, Name: req.Topic}
		s.subjects[sub.ID] = sub
	}
	sub.Deleted = false

	topics := make([]gin.H, 0, req.QuestionCount)
	for i := 0; i < req.QuestionCount; i++ {
		q := &question{
			ID:        s.id(),
			Owner:     owner,
			SubjectID: sub.ID,
			Title:     fmt.Sprintf("[%s] Question %d about %s", req.Difficulty, i+1, req.Topic),
			Options: [4]string{
				fmt.Sprintf("%s fact A", req.Topic),
				fmt.Sprintf("%s fact B", req.Topic),
				fmt.Sprintf("%s fact C", req.Topic),
				fmt.Sprintf("%s fact D", req.Topic),
			},
			Answer: answerLetters[i%len(answerLetters)],
		}
		q.Explanation = fmt.Sprintf("The correct answer is %s.", q.Answer)
		s.questions[q.ID] = q
		topics = append(topics, gin.H{
			"id":               q.ID,
			"title":            q.Title,
			"option_A":         q.Options[0],
			"option_B":         q.Options[1],
			"option_C":         q.Options[2],
			"option_D":         q.Options[3],
			"Ai_answer":        q.Answer,
			"explanation_text": q.Explanation,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz":    gin.H{"id": sub.ID, "quiz_topic": sub.Name, "difficulty": req.Difficulty},
		"topics":  topics,
		"message": "Quiz generated successfully",
	})
}

func (s *Server) submitAnswers(c *gin.Context) {
	var req struct {
		Updates []struct {
			ID         int64  `json:"id"`
			UserAnswer string `json:"user_answer"`
		} `json:"updates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either 'topic' and 'user_answer' or 'updates' are required"})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	var subjectID int64
	for _, u := range req.Updates {
		q := s.questions[u.ID]
		if q == nil || q.Owner != owner {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Topic with ID %d not found", u.ID)})
			return
		}
		q.UserAnswer = u.UserAnswer
		subjectID = q.SubjectID
	}

	var answered, correct int
	for _, q := range s.questions {
		if q.SubjectID != subjectID || q.UserAnswer == "" {
			continue
		}
		answered++
		if strings.EqualFold(q.UserAnswer, q.Answer) {
			correct++
		}
	}
	fam := 0.0
	if answered > 0 {
		fam = float64(correct) / float64(answered) * 100
	}
	s.familiarity[subjectID] = fam

	c.JSON(http.StatusOK, gin.H{
		"familiarity":         fam,
		"quiz_topic_id":       subjectID,
		"difficulty_level":    difficultyFor(fam),
		"difficulty_cap":      "hard",
		"already_reached_cap": fam >= 80,
		"updated":             true,
	})
}

func difficultyFor(familiarity float64) string {
	switch {
	case familiarity >= 80:
		return "hard"
	case familiarity >= 50:
		return "medium"
	}
	return "easy"
}

func (s *Server) listFamiliarity(c *gin.Context) {
	owner := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]gin.H, 0)
	for _, sub := range s.ownedSubjects(owner) {
		fam, ok := s.familiarity[sub.ID]
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"quiz_topic":  gin.H{"id": sub.ID, "quiz_topic": sub.Name},
			"familiarity": fam,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addFavorite(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
		TopicID int64  `json:"topic_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	owner := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.questions[req.TopicID]
	if q == nil || q.Owner != owner {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}
	for _, n := range s.notes {
		if n.Owner == owner && n.SubjectID == q.SubjectID && n.Content == req.Content {
			c.JSON(http.StatusOK, gin.H{"message": "This topic is already in your favorites"})
			return
		}
	}
	now := s.now()
	n := &note{ID: s.id(), Owner: owner, SubjectID: q.SubjectID, Title: q.Title, Content: req.Content, CreatedAt: now, UpdatedAt: now}
	s.notes[n.ID] = n
	c.JSON(http.StatusCreated, gin.H{"id": n.ID, "title": n.Title, "content": n.Content, "quiz_topic_id": n.SubjectID})
}
