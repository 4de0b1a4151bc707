// Package server exposes the research, lookalike, sentiment, scoring and
// scheduler operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/astra"
	"github.com/spigell/company-researcher/internal/cache"
	"github.com/spigell/company-researcher/internal/lookalike"
	"github.com/spigell/company-researcher/internal/research"
	"github.com/spigell/company-researcher/internal/scheduler"
	"github.com/spigell/company-researcher/internal/scoring"
	"github.com/spigell/company-researcher/internal/sentiment"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskDef is a scheduler task that can be registered over the API.
type TaskDef struct {
	Name string
	Fn   scheduler.TaskFunc
}

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Store     *astra.Store
	Research  *research.Service
	Lookalike *lookalike.Finder
	Sentiment *sentiment.Analyzer
	// Analyst, when set, replaces the lexicon for per-source sentiment.
	Analyst   ai.Analyst
	Scorer    *scoring.Scorer
	Scheduler *scheduler.Scheduler
	Cache     *cache.Manager
	// Tasks lists the task definitions POST /api/scheduler/tasks may
	// register, keyed by task type.
	Tasks map[string]TaskDef
}

type Server struct {
	deps   Deps
	logger *zap.Logger
	http   *http.Server
}

func New(logger *zap.Logger, addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{deps: deps, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	s.routes(router)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/", s.handleRoot)

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/research", s.handleResearch)
		api.POST("/lookalike", s.handleLookalike)
		api.POST("/sentiment", s.handleSentiment)
		api.GET("/stats", s.handleStats)
	}

	sc := api.Group("/scoring")
	{
		sc.GET("/weights", s.handleGetWeights)
		sc.POST("/weights", s.handleUpdateWeights)
		sc.POST("/weights/reset", s.handleResetWeights)
		sc.POST("/score", s.handleScore)
	}

	sched := api.Group("/scheduler")
	{
		sched.GET("/status", s.handleSchedulerStatus)
		sched.POST("/start", s.handleSchedulerStart)
		sched.POST("/stop", s.handleSchedulerStop)
		sched.POST("/tasks", s.handleAddTask)
		sched.DELETE("/tasks/:id", s.handleRemoveTask)
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
