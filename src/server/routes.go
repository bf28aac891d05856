package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/ledger"
)

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", handleHealth())

	v1 := router.Group("/v1")
	v1.POST("/sessions", s.handleCreateSession())
	v1.POST("/sessions/:id/messages", s.handleSendMessage())
	v1.GET("/sessions/:id/turns", s.handleTurns())
	v1.GET("/ledger/:dataset", s.handleLedger())
}

type createSessionRequest struct {
	SessionID string `json:"session_id"`
	Resume    bool   `json:"resume"`
}

type messageRequest struct {
	Content string `json:"content"`
	// Image is base64 in JSON.
	Image []byte `json:"image"`
}

type messageResponse struct {
	SessionID  string   `json:"session_id"`
	Reply      string   `json:"reply"`
	State      string   `json:"state"`
	Iterations int      `json:"iterations"`
	Alerts     []string `json:"alerts,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

type turnView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handleCreateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if req.SessionID != "" {
			if e, ok := s.lookup(req.SessionID); ok {
				c.JSON(http.StatusOK, gin.H{"id": e.conv.ID()})
				return
			}
		}

		conv, err := s.open(c.Request.Context(), app.ChatOptions{SessionID: req.SessionID, Resume: req.Resume})
		if err != nil {
			s.logger.Warn("failed to open session", "error", err)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		s.add(conv)
		c.JSON(http.StatusCreated, gin.H{"id": conv.ID()})
	}
}

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := s.lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		input := &aisdk.Message{Role: aisdk.RoleUser, Content: req.Content}
		if len(req.Image) > 0 {
			msg, err := app.ImageMessage(req.Content, req.Image)
			if err != nil {
				c.JSON(statusFor(err), gin.H{"error": err.Error()})
				return
			}
			input = msg
		}

		if !e.busy.TryLock() {
			c.JSON(http.StatusConflict, gin.H{"error": "session is busy"})
			return
		}
		defer e.busy.Unlock()

		resp := messageResponse{SessionID: e.conv.ID()}
		sink := executor.NewChannelEventSink(s.logger, 16, executor.ProcessorFunc(func(ev executor.ConversationEvent) error {
			if ev.IsInternal() {
				return nil
			}
			switch ev := ev.(type) {
			case *executor.PrecheckAlertEvent:
				resp.Alerts = append(resp.Alerts, ev.Content)
			case *executor.ErrorEvent:
				resp.Errors = append(resp.Errors, ev.Error)
			}
			return nil
		}))

		result, err := e.conv.Send(c.Request.Context(), input, sink)
		sink.Close()
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		resp.Reply = result.Final
		resp.State = result.State.String()
		resp.Iterations = result.Iterations
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) handleTurns() gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := s.lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		turns := e.conv.Session().VisibleTurns()
		out := make([]turnView, 0, len(turns))
		for _, t := range turns {
			out = append(out, turnView{
				ID:        t.ID,
				Role:      t.Role(),
				Content:   t.Message.TextContent(),
				CreatedAt: t.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"session_id": e.conv.ID(), "turns": out})
	}
}

func (s *Server) handleLedger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ds, err := ledger.ParseDataset(c.Param("dataset"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		table, err := s.ledger.Load(ds)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		summary, err := s.ledger.Summary(ds)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"dataset": ds,
			"columns": table.Header,
			"rows":    table.Rows,
			"summary": summary,
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, executor.ErrSessionNotFound), ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, executor.ErrDatabaseRequired):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
