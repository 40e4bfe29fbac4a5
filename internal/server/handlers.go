package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retailbot/internal/conversation"
)

type messageRequest struct {
	Message string `json:"message"`
}

type turnResponse struct {
	SessionID string              `json:"session_id"`
	Reply     string              `json:"reply"`
	Status    conversation.Status `json:"status"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"bot":         s.cfg.BotName,
		"index_ready": s.index.Ready(),
	})
}

func (s *Server) createSession(c *gin.Context) {
	e := &sessionEntry{session: conversation.NewSession()}
	reply, sess := s.chat.HandleMessage(c.Request.Context(), "", e.session)
	e.session = sess
	s.sessions.save(e)
	c.JSON(http.StatusCreated, turnResponse{SessionID: sess.ID, Reply: reply, Status: conversation.StatusOf(sess)})
}

func (s *Server) sessionStatus(c *gin.Context) {
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	e.mu.Lock()
	st := conversation.StatusOf(e.session)
	e.mu.Unlock()
	c.JSON(http.StatusOK, st)
}

func (s *Server) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	e.mu.Lock()
	reply, sess := s.chat.HandleMessage(c.Request.Context(), req.Message, e.session)
	e.session = sess
	st := conversation.StatusOf(sess)
	e.mu.Unlock()
	s.sessions.save(e)

	c.JSON(http.StatusOK, turnResponse{SessionID: sess.ID, Reply: reply, Status: st})
}

// restartSession drops the conversation and starts over under the same id.
func (s *Server) restartSession(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.sessions.get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	s.sessions.delete(id)
	e := &sessionEntry{session: &conversation.Session{ID: id, State: conversation.StateWelcome}}
	reply, sess := s.chat.HandleMessage(c.Request.Context(), "", e.session)
	e.session = sess
	s.sessions.save(e)
	c.JSON(http.StatusOK, turnResponse{SessionID: id, Reply: reply, Status: conversation.StatusOf(sess)})
}

func (s *Server) stats(c *gin.Context) {
	days := 30
	if v := strings.TrimSpace(c.Query("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	ctx := c.Request.Context()
	general, err := s.analytics.GeneralStats(ctx)
	if err != nil {
		s.logger.Error("reading stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	daily, err := s.analytics.PeriodMetrics(ctx, days)
	if err != nil {
		s.logger.Error("reading daily metrics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"general": general, "daily": daily})
}

func (s *Server) reindex(c *gin.Context) {
	// a rebuild is not abandoned when the caller disconnects
	report, err := s.index.ProcessDocuments(context.WithoutCancel(c.Request.Context()), true)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) resetCache(c *gin.Context) {
	if err := s.index.Reset(c.Request.Context()); err != nil {
		s.logger.Error("cache reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
