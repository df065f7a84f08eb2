package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/faseelanwar-cpu/interview-coach/internal/agent"
	"github.com/faseelanwar-cpu/interview-coach/internal/ingestion"
	"github.com/faseelanwar-cpu/interview-coach/internal/interview"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// interviewView is the client's view of a session
type interviewView struct {
	interview.Session
	Progress         float64 `json:"progress"`
	CanStopRecording bool    `json:"canStopRecording"`
}

func viewOf(s interview.Session) interviewView {
	return interviewView{Session: s, Progress: s.Progress(), CanStopRecording: s.CanStopRecording()}
}

func (s *Server) handleSignIn(c *gin.Context) {
	var payload struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := s.auth.SignIn(c.Request.Context(), payload.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.auth.SignOut(currentToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.coach.Profile(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	var p models.CandidateProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.coach.SaveProfile(c.Request.Context(), currentUser(c).Email, p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// materialSource reads the candidate material fields of a multipart form:
// a "document" file or use_profile=true
func (s *Server) materialSource(c *gin.Context) (agent.MaterialSource, error) {
	src := agent.MaterialSource{UseProfile: formBool(c, "use_profile")}

	header, err := c.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		if !src.UseProfile {
			return src, fmt.Errorf("upload a document or set use_profile")
		}
		return src, nil
	}
	if err != nil {
		return src, fmt.Errorf("failed to read upload: %w", err)
	}
	if src.UseProfile {
		return src, fmt.Errorf("send either a document or use_profile, not both")
	}

	f, err := header.Open()
	if err != nil {
		return src, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	doc, err := ingestion.LoadDocument(header.Filename, f, s.cfg.MaxUploadBytes())
	if err != nil {
		return src, err
	}
	src.Document = &doc
	return src, nil
}

func formBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(c.PostForm(key)))
	return v
}

// jobDescription reads the required job_description form field
func jobDescription(c *gin.Context) (string, bool) {
	jd := strings.TrimSpace(c.PostForm("job_description"))
	if jd == "" {
		respondMessage(c, http.StatusBadRequest, "job_description is required")
		return "", false
	}
	return jd, true
}

func (s *Server) handleAnalyzeCV(c *gin.Context) {
	jd, ok := jobDescription(c)
	if !ok {
		return
	}
	src, err := s.materialSource(c)
	if err != nil {
		respondBadInput(c, err)
		return
	}

	a, err := s.coach.AnalyzeCV(c.Request.Context(), currentUser(c).Email, jd, src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleListAnalyses(c *gin.Context) {
	list, err := s.coach.CVAnalyses(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(list))
}

func (s *Server) handleGenerateCV(c *gin.Context) {
	analysisID := strings.TrimSpace(c.PostForm("analysis_id"))
	jd := strings.TrimSpace(c.PostForm("job_description"))
	if jd == "" && analysisID == "" {
		respondMessage(c, http.StatusBadRequest, "job_description or analysis_id is required")
		return
	}
	src, err := s.materialSource(c)
	if err != nil {
		respondBadInput(c, err)
		return
	}

	cv, err := s.coach.GenerateCV(c.Request.Context(), currentUser(c).Email, jd, src, analysisID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cv)
}

func (s *Server) handleListGeneratedCVs(c *gin.Context) {
	list, err := s.coach.GeneratedCVs(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(list))
}

func (s *Server) handleGeneratedCVPDF(c *gin.Context) {
	data, err := s.coach.GeneratedCVPDF(c.Request.Context(), currentUser(c).Email, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "cv-"+c.Param("id")+".pdf", "application/pdf", data)
}

func (s *Server) handleStartInterview(c *gin.Context) {
	jd, ok := jobDescription(c)
	if !ok {
		return
	}
	src, err := s.materialSource(c)
	if err != nil {
		respondBadInput(c, err)
		return
	}

	li, err := s.coach.StartInterview(c.Request.Context(), agent.Owner{Email: currentUser(c).Email, Token: currentToken(c)}, jd, src, formBool(c, "microphone"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(li.Snapshot()))
}

func (s *Server) liveInterview(c *gin.Context) (*agent.LiveInterview, bool) {
	li, err := s.coach.Interview(currentUser(c).Email, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return li, true
}

func (s *Server) handleGetInterview(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(li.Snapshot()))
}

func (s *Server) handleEndInterview(c *gin.Context) {
	if err := s.coach.EndInterview(currentUser(c).Email, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAudioChunk(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}
	chunk, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, fmt.Sprintf("failed to read audio: %v", err))
		return
	}
	if err := li.WriteAudio(c.ContentType(), chunk); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStopRecording(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}
	if err := li.StopRecording(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, viewOf(li.Snapshot()))
}

func (s *Server) handlePlaybackFinished(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}
	if !li.PlaybackFinished() {
		respondMessage(c, http.StatusConflict, "no question is playing")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleQuestionAudio(c *gin.Context) {
	li, ok := s.liveInterview(c)
	if !ok {
		return
	}
	clip, seq, ok := li.QuestionAudio()
	if !ok {
		respondMessage(c, http.StatusNotFound, "no question audio yet")
		return
	}
	c.Header("X-Question-Seq", strconv.Itoa(seq))
	c.Data(http.StatusOK, "audio/wav", clip.WAV())
}

func (s *Server) handleListReports(c *gin.Context) {
	list, err := s.coach.Reports(c.Request.Context(), currentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emptyIfNil(list))
}

func (s *Server) handleGetReport(c *gin.Context) {
	r, err := s.coach.Report(c.Request.Context(), currentUser(c).Email, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	dl, err := s.coach.ReportDownload(c.Request.Context(), currentUser(c).Email, c.Param("id"), c.DefaultQuery("format", "txt"))
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, dl.Filename, dl.ContentType, dl.Data)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// respondBadInput reports a malformed request, keeping more specific
// statuses such as 413
func respondBadInput(c *gin.Context, err error) {
	if status := statusFor(err); status != http.StatusInternalServerError {
		respondMessage(c, status, err.Error())
		return
	}
	respondMessage(c, http.StatusBadRequest, err.Error())
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
