package server

import (
	"net/http"
	"time"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/lookalike"
	"github.com/spigell/company-researcher/internal/research"
	"github.com/spigell/company-researcher/internal/scoring"
	"github.com/spigell/company-researcher/internal/sentiment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, envelope{Success: false, Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	fail(c, http.StatusBadRequest, err)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "company researcher api",
		Data: gin.H{
			"endpoints": []string{
				"/api/health",
				"/api/research",
				"/api/lookalike",
				"/api/sentiment",
				"/api/stats",
				"/api/scoring/weights",
				"/api/scoring/score",
				"/api/scheduler/status",
			},
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.deps.Store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Warn("health check database probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, envelope{
			Success: false,
			Error:   "database unreachable",
			Data:    gin.H{"status": "degraded"},
		})
		return
	}

	ok(c, gin.H{
		"status":    "healthy",
		"documents": stats.DocumentCount,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleResearch(c *gin.Context) {
	var req research.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := s.deps.Research.Research(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, resp)
}

func (s *Server) handleLookalike(c *gin.Context) {
	var req lookalike.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := s.deps.Lookalike.Find(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, resp)
}

type sentimentRequest struct {
	CompanyName string                   `json:"company_name"`
	Sources     []*sentiment.Source      `json:"sources"`
	Hiring      *sentiment.HiringData    `json:"hiring,omitempty"`
	Financial   *sentiment.FinancialData `json:"financial,omitempty"`
}

func (s *Server) handleSentiment(c *gin.Context) {
	var req sentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var analysis *sentiment.Analysis
	if s.deps.Analyst != nil {
		analysis = ai.AnalyzeSources(c.Request.Context(), s.deps.Analyst, s.deps.Sentiment, req.Sources)
	} else {
		analysis = s.deps.Sentiment.AnalyzeSources(req.Sources)
	}
	growth := s.deps.Sentiment.CalculateGrowthScore(req.Sources, req.Hiring, req.Financial)

	ok(c, gin.H{
		"company_name": req.CompanyName,
		"sentiment":    analysis,
		"growth":       growth,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	dbStats, err := s.deps.Store.Stats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}

	ok(c, gin.H{
		"database": dbStats,
		"caches":   s.deps.Cache.Stats(),
	})
}

func (s *Server) handleGetWeights(c *gin.Context) {
	ok(c, gin.H{"weights": s.deps.Scorer.Weights()})
}

func (s *Server) handleUpdateWeights(c *gin.Context) {
	var req struct {
		Weights map[string]float64 `json:"weights"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	weights, err := s.deps.Scorer.UpdateWeights(req.Weights)
	if err != nil {
		badRequest(c, err)
		return
	}
	ok(c, gin.H{"weights": weights})
}

func (s *Server) handleResetWeights(c *gin.Context) {
	ok(c, gin.H{"weights": s.deps.Scorer.ResetWeights()})
}

type scoreRequest struct {
	EntityID   string          `json:"entity_id"`
	EntityType string          `json:"entity_type"`
	Signals    scoring.Signals `json:"signals"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.deps.Scorer.ScoreEntity(c.Request.Context(), req.EntityID, req.EntityType, req.Signals)
	if err != nil {
		badRequest(c, err)
		return
	}
	ok(c, result)
}

func (s *Server) handleSchedulerStatus(c *gin.Context) {
	ok(c, gin.H{
		"running": s.deps.Scheduler.IsRunning(),
		"tasks":   s.deps.Scheduler.List(),
	})
}

func (s *Server) handleSchedulerStart(c *gin.Context) {
	if err := s.deps.Scheduler.Start(); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "scheduler started"})
}

func (s *Server) handleSchedulerStop(c *gin.Context) {
	if err := s.deps.Scheduler.Stop(); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "scheduler stopped"})
}

type addTaskRequest struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	IntervalSeconds int    `json:"interval_seconds"`
}

func (s *Server) handleAddTask(c *gin.Context) {
	var req addTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	def, known := s.deps.Tasks[req.Type]
	if !known {
		c.JSON(http.StatusBadRequest, envelope{
			Success: false,
			Error:   "unknown task type: " + req.Type,
			Data:    gin.H{"available": taskTypes(s.deps.Tasks)},
		})
		return
	}

	id := req.ID
	if id == "" {
		id = req.Type
	}

	interval := time.Duration(req.IntervalSeconds) * time.Second
	if err := s.deps.Scheduler.Add(id, def.Name, interval, def.Fn); err != nil {
		badRequest(c, err)
		return
	}

	status, err := s.deps.Scheduler.Status(id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, status)
}

func (s *Server) handleRemoveTask(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Scheduler.Remove(id); err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "task " + id + " removed"})
}

func taskTypes(tasks map[string]TaskDef) []string {
	types := make([]string, 0, len(tasks))
	for t := range tasks {
		types = append(types, t)
	}
	return types
}
