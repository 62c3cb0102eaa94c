// Package devserver is an in-memory stand-in for the NoteQ backend and ML service.
//
// It speaks the same JSON contract as the real services so the client, the CLI and
// the tests can run without them. Questions are placeholders and familiarity is the
// share of correct answers; nothing here tries to be a real tutor.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type user struct {
	ID        int64
	Username  string
	Email     string
	Hash      []byte
	IsPaid    bool
	CreatedAt time.Time
}

type subject struct {
	ID      int64
	Owner   int64
	Name    string
	Deleted bool
}

type note struct {
	ID        int64
	Owner     int64
	SubjectID int64
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type question struct {
	ID          int64
	Owner       int64
	SubjectID   int64
	Title       string
	Options     [4]string
	Answer      string
	Explanation string
	UserAnswer  string
}

type fault struct {
	status    int
	remaining int
}

// Server holds the fake backend state.
type Server struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*user
	tokens      map[string]int64
	resets      map[string]string // uid -> reset token
	subjects    map[int64]*subject
	notes       map[int64]*note
	questions   map[int64]*question
	familiarity map[int64]float64 // subject id -> familiarity
	payments    map[string]string // merchant trade no -> status
	faults      map[string]*fault

	engine   *gin.Engine
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server with no users.
func New(opts ...Option) *Server {
	s := &Server{
		users:       make(map[int64]*user),
		tokens:      make(map[string]int64),
		resets:      make(map[string]string),
		subjects:    make(map[int64]*subject),
		notes:       make(map[int64]*note),
		questions:   make(map[int64]*question),
		familiarity: make(map[int64]float64),
		payments:    make(map[string]string),
		faults:      make(map[string]*fault),
		registry:    prometheus.NewRegistry(),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.requests = promauto.With(s.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noteq",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving both the backend and the ML endpoints.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Fail makes the next times requests to method+route answer status.
// route is the registered pattern, e.g. "/api/notes/:id/".
func (s *Server) Fail(method, route string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+route] = &fault{status: status, remaining: times}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests(), s.injectFaults())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "noteq-devserver"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	r.POST("/login/", s.login)
	r.POST("/register/", s.register)
	r.POST("/forgot-password/", s.forgotPassword)
	r.POST("/reset-password-from-email/", s.resetFromEmail)

	authed := r.Group("/", s.authenticate())
	{
		authed.POST("/reset-password/", s.resetPassword)
		authed.GET("/users/:id/", s.getUser)
		authed.GET("/payment-status/", s.paymentStatus)
	}

	api := r.Group("/api", s.authenticate())
	{
		api.GET("/user_quiz_and_notes/", s.quizAndNotes)
		api.POST("/create_quiz/", s.createQuizTopic)
		api.DELETE("/quiz/:id/soft-delete/", s.softDeleteQuiz)
		api.POST("/quiz/", s.generateQuiz)
		api.POST("/submit_answer/", s.submitAnswers)
		api.GET("/familiarity/", s.listFamiliarity)
		api.POST("/add-favorite/", s.addFavorite)
		api.POST("/notes/", s.createNote)
		api.PATCH("/notes/:id/", s.updateNote)
		api.DELETE("/notes/:id/", s.deleteNote)
		api.POST("/generate_topic_from_note", s.generateTopic)
	}
	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.logger.Debug("devserver request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetHeader("X-Request-ID"),
		)
	}
}

func (s *Server) injectFaults() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		f, ok := s.faults[key]
		if ok && f.remaining > 0 {
			f.remaining--
			s.mu.Unlock()
			c.AbortWithStatusJSON(f.status, gin.H{"error": "injected failure"})
			return
		}
		s.mu.Unlock()
		c.Next()
	}
}

const userKey = "noteq.user"

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		s.mu.Lock()
		id, found := s.tokens[token]
		s.mu.Unlock()
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		c.Set(userKey, id)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userKey)
}

// id must be called with s.mu held.
func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
