package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/pkg/assistant"
	"github.com/xhad/seerah/pkg/chat"
)

type Config struct {
	Addr      string
	Streaming bool // stream answer text over websockets
}

// Server exposes chat sessions over HTTP and websockets.
type Server struct {
	config   Config
	pipeline chat.Pipeline
	sessions *chat.Store
	router   *gin.Engine
}

// Answer is the wire form of one answered question.
type Answer struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Pages       []string `json:"pages"`
	Content     string   `json:"content"`
	Suggestions []string `json:"suggestions,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func newAnswer(msg models.ChatMessage, result models.AnswerResult) Answer {
	a := Answer{
		Question:    result.Question,
		Answer:      result.Answer,
		Pages:       result.Pages,
		Content:     msg.Content,
		Suggestions: chat.Suggestions(result.Question),
	}
	if a.Pages == nil {
		a.Pages = []string{}
	}
	if result.Failed() {
		a.Error = result.Err.Error()
	}
	return a
}

func New(config Config, pipeline chat.Pipeline) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	s := &Server{
		config:   config,
		pipeline: pipeline,
		sessions: chat.NewStore(pipeline),
		router:   gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(gin.Recovery(), requestLogger())

	s.router.GET("/health", s.health)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	{
		api.GET("/questions", s.questions)
		api.POST("/sessions", s.createSession)
		api.POST("/sessions/:id/ask", s.ask)
		api.GET("/sessions/:id/history", s.history)
		api.GET("/sessions/:id/export", s.export)
		api.DELETE("/sessions/:id", s.endSession)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", s.config.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":   "healthy",
		"service":  "seerah",
		"sessions": s.sessions.Len(),
	}
	if a, ok := s.pipeline.(interface{ Info() assistant.Info }); ok {
		body["index"] = a.Info()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": chat.SampleQuestions()})
}

func (s *Server) createSession(c *gin.Context) {
	session := s.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{
		"id":       session.ID(),
		"messages": session.History(),
	})
}

type askRequest struct {
	Question string `json:"question"`
	Preset   *int   `json:"preset"`
}

func (s *Server) ask(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var (
		msg    models.ChatMessage
		result models.AnswerResult
	)
	switch {
	case req.Preset != nil:
		if _, err := session.QueuePreset(*req.Preset); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg, result, _ = session.ProcessPending(c.Request.Context())
	case chat.CleanText(req.Question) != "":
		msg, result = session.Ask(c.Request.Context(), req.Question)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "question or preset is required"})
		return
	}

	c.JSON(http.StatusOK, newAnswer(msg, result))
}

func (s *Server) history(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       session.ID(),
		"messages": session.History(),
		"stats":    session.Stats(),
	})
}

func (s *Server) export(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", `attachment; filename="chat_history.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(session.Export()))
}

func (s *Server) endSession(c *gin.Context) {
	if !s.sessions.End(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) (*chat.Session, bool) {
	session, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	}
	return session, ok
}
