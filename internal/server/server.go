// Package server exposes the conversation over HTTP for the web chat widget.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"retailbot/internal/conversation"
	"retailbot/internal/retrieval"
	"retailbot/internal/userstore"
)

// Chat runs one conversational turn.
type Chat interface {
	HandleMessage(ctx context.Context, message string, s *conversation.Session) (string, *conversation.Session)
}

// Index manages the document index.
type Index interface {
	Ready() bool
	ProcessDocuments(ctx context.Context, force bool) (*retrieval.Report, error)
	Reset(ctx context.Context) error
}

// Analytics reads usage statistics.
type Analytics interface {
	GeneralStats(ctx context.Context) (*userstore.Stats, error)
	PeriodMetrics(ctx context.Context, days int) ([]userstore.DailyMetrics, error)
}

// Config configures the HTTP surface.
type Config struct {
	Addr           string
	SessionTTL     time.Duration
	AllowedOrigins []string
	BotName        string
	// AdminToken guards the stats and admin routes. They are not served
	// when it is empty.
	AdminToken     string
}

// Server is the HTTP chat backend.
type Server struct {
	cfg       Config
	chat      Chat
	index     Index
	analytics Analytics
	sessions  *sessionStore
	logger    *zap.Logger
	router    *gin.Engine
}

func New(cfg Config, chat Chat, index Index, analytics Analytics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	s := &Server{
		cfg:       cfg,
		chat:      chat,
		index:     index,
		analytics: analytics,
		sessions:  newSessionStore(cfg.SessionTTL),
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.corsMiddleware())

	api := r.Group("/api/v1")
	api.GET("/health", s.health)

	sessions := api.Group("/sessions")
	sessions.POST("", s.createSession)
	sessions.GET("/:id", s.sessionStatus)
	sessions.POST("/:id/messages", s.postMessage)
	sessions.DELETE("/:id", s.restartSession)

	if s.cfg.AdminToken == "" {
		s.logger.Info("admin token not set, stats and admin routes disabled")
		return r
	}
	protected := api.Group("", s.requireAdmin())
	protected.GET("/stats", s.stats)
	admin := protected.Group("/admin")
	admin.POST("/reindex", s.reindex)
	admin.DELETE("/cache", s.resetCache)
	return r
}

// requireAdmin accepts requests carrying "Authorization: Bearer <admin token>".
func (s *Server) requireAdmin() gin.HandlerFunc {
	want := []byte(s.cfg.AdminToken)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 || (len(s.cfg.AllowedOrigins) == 1 && s.cfg.AllowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cors.New(cfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
