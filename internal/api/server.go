// Package api exposes the coach over HTTP and websockets.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/faseelanwar-cpu/interview-coach/internal/agent"
	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/auth"
	"github.com/faseelanwar-cpu/interview-coach/internal/config"
	"github.com/faseelanwar-cpu/interview-coach/internal/ingestion"
	"github.com/faseelanwar-cpu/interview-coach/internal/interview"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/store"
)

// Server handles HTTP requests
type Server struct {
	cfg    *config.Config
	coach  *agent.Coach
	auth   *auth.Session
	engine *gin.Engine
}

// NewServer creates the API server and registers its routes
func NewServer(cfg *config.Config, coach *agent.Coach, sessions *auth.Session) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(MaxBodySize(cfg.MaxUploadBytes()))
	engine.Use(CORS(cfg.AllowedOriginList()))

	s := &Server{cfg: cfg, coach: coach, auth: sessions, engine: engine}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer returns a server listening on the configured port
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/api/health", s.handleHealth)

	r.POST("/api/auth/sign-in", s.handleSignIn)

	authed := r.Group("/api", s.requireUser())
	{
		authed.POST("/auth/sign-out", s.handleSignOut)

		authed.GET("/profile", s.handleGetProfile)
		authed.PUT("/profile", s.handleSaveProfile)

		authed.POST("/cv/analyses", s.handleAnalyzeCV)
		authed.GET("/cv/analyses", s.handleListAnalyses)
		authed.POST("/cv/generated", s.handleGenerateCV)
		authed.GET("/cv/generated", s.handleListGeneratedCVs)
		authed.GET("/cv/generated/:id/pdf", s.handleGeneratedCVPDF)

		authed.POST("/interviews", s.handleStartInterview)
		authed.GET("/interviews/:id", s.handleGetInterview)
		authed.DELETE("/interviews/:id", s.handleEndInterview)
		authed.POST("/interviews/:id/audio", s.handleAudioChunk)
		authed.POST("/interviews/:id/stop", s.handleStopRecording)
		authed.POST("/interviews/:id/playback-finished", s.handlePlaybackFinished)
		authed.GET("/interviews/:id/question-audio", s.handleQuestionAudio)
		authed.GET("/interviews/:id/events", s.handleEvents)

		authed.GET("/reports", s.handleListReports)
		authed.GET("/reports/:id", s.handleGetReport)
		authed.GET("/reports/:id/download", s.handleDownloadReport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, agent.ErrInterviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrNoProfile), errors.Is(err, agent.ErrUnknownFormat),
		errors.Is(err, ingestion.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrTooLarge), errors.Is(err, audio.ErrAnswerTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, audio.ErrNotRecording), errors.Is(err, interview.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, llm.ErrGenerationTimedOut):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
