package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Seed registers a user directly and returns its ID.
func (s *Server) Seed(username, email, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{ID: s.id(), Username: username, Email: strings.ToLower(email), Hash: hash, CreatedAt: s.now()}
	s.users[u.ID] = u
	return u.ID, nil
}

// SetPayment records the status of a checkout and marks the user paid once completed.
func (s *Server) SetPayment(merchantTradeNo string, userID int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[merchantTradeNo] = status
	if u, ok := s.users[userID]; ok && status == "completed" {
		u.IsPaid = true
	}
}

// ResetToken returns the pending e-mail reset token of a user.
func (s *Server) ResetToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets[strconv.FormatInt(userID, 10)]
}

// userByEmail must be called with s.mu held.
func (s *Server) userByEmail(email string) *user {
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(req.Email)
	if u == nil || bcrypt.CompareHashAndPassword(u.Hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token := uuid.NewString()
	s.tokens[token] = u.ID
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"refresh":  uuid.NewString(),
		"user_id":  u.ID,
		"username": u.Username,
		"email":    u.Email,
		"is_paid":  u.IsPaid,
	})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
		return
	}

	s.mu.Lock()
	exists := s.userByEmail(req.Email) != nil
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with that email already exists"})
		return
	}
	if _, err := s.Seed(req.Username, req.Email, req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	s.mu.Lock()
	if u := s.userByEmail(req.Email); u != nil {
		s.resets[strconv.FormatInt(u.ID, 10)] = uuid.NewString()
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "If the address exists, a reset link has been sent"})
}

func (s *Server) setPassword(u *user, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	u.Hash = hash
	return nil
}

func (s *Server) resetPassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[currentUser(c)]
	if u == nil || bcrypt.CompareHashAndPassword(u.Hash, []byte(req.OldPassword)) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Old password is incorrect"})
		return
	}
	if err := s.setPassword(u, req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (s *Server) resetFromEmail(c *gin.Context) {
	var req struct {
		UID         string `json:"uid"`
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.resets[req.UID]
	if !ok || want != req.Token {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset link"})
		return
	}
	id, _ := strconv.ParseInt(req.UID, 10, 64)
	u := s.users[id]
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err := s.setPassword(u, req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	delete(s.resets, req.UID)
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if id != currentUser(c) {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt.Format(timeLayout),
	})
}

func (s *Server) paymentStatus(c *gin.Context) {
	tradeNo := c.Query("merchant_trade_no")
	s.mu.Lock()
	status, ok := s.payments[tradeNo]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
