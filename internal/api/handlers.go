package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/domain"
	"github.com/dental-cdss-server/internal/feedback"
)

func (s *Server) handleAssess(c *gin.Context) {
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	assessment, recommendation, err := s.deps.Assessments.Assess(c.Request.Context(), recordID, c.GetInt64("userID"))
	if err != nil {
		s.respondError(c, err, "failed to assess record")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"assessment":     assessment,
		"recommendation": recommendation,
	})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var record domain.MedicalRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.badRequest(c, "invalid medical record payload", err)
		return
	}

	recommendation, err := s.deps.Assessments.Simulate(c.Request.Context(), &record)
	if err != nil {
		s.respondError(c, err, "failed to simulate assessment")
		return
	}

	c.JSON(http.StatusOK, recommendation)
}

func (s *Server) handleAssessmentHistory(c *gin.Context) {
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	assessments, err := s.deps.Assessments.History(c.Request.Context(), recordID)
	if err != nil {
		s.respondError(c, err, "failed to load assessment history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

func (s *Server) handleLatestAssessment(c *gin.Context) {
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	assessment, err := s.deps.Assessments.Latest(c.Request.Context(), recordID)
	if err != nil {
		s.respondError(c, err, "failed to load latest assessment")
		return
	}

	c.JSON(http.StatusOK, assessment)
}

func (s *Server) handleSimilarCases(c *gin.Context) {
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.badRequest(c, "limit must be a positive integer", err)
			return
		}
		limit = parsed
	}

	record, err := s.deps.Records.GetByID(c.Request.Context(), recordID)
	if err != nil {
		s.respondError(c, err, "failed to load medical record")
		return
	}

	cases, err := s.deps.Similarity.FindSimilarCases(c.Request.Context(), record, limit)
	if err != nil {
		s.respondError(c, err, "similar case search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"similar_cases": cases})
}

func (s *Server) handleListRules(c *gin.Context) {
	var categoryID int64
	if raw := c.Query("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.badRequest(c, "category_id must be an integer", err)
			return
		}
		categoryID = parsed
	}
	activeOnly := c.DefaultQuery("active_only", "true") != "false"

	rules, err := s.deps.Rules.ListRules(c.Request.Context(), categoryID, activeOnly)
	if err != nil {
		s.respondError(c, err, "failed to list rules")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.deps.Rules.ListCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to list rule categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) handleCreateRule(c *gin.Context) {
	var rule domain.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		s.badRequest(c, "invalid rule payload", err)
		return
	}
	if err := rule.Validate(); err != nil {
		s.badRequest(c, "rule validation failed", err)
		return
	}

	rule.CreatedBy = c.GetInt64("userID")
	if err := s.deps.Rules.CreateRule(c.Request.Context(), &rule); err != nil {
		s.respondError(c, err, "failed to create rule")
		return
	}

	// New rules take effect on the next snapshot.
	s.deps.Snapshots.Invalidate()

	c.JSON(http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var rule domain.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		s.badRequest(c, "invalid rule payload", err)
		return
	}
	rule.ID = id
	if err := rule.Validate(); err != nil {
		s.badRequest(c, "rule validation failed", err)
		return
	}

	if err := s.deps.Rules.UpdateRule(c.Request.Context(), &rule); err != nil {
		s.respondError(c, err, "failed to update rule")
		return
	}

	s.deps.Snapshots.Invalidate()

	c.JSON(http.StatusOK, rule)
}

func (s *Server) handleSaveFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.badRequest(c, "invalid feedback payload", err)
		return
	}
	if fb.AssessmentID == 0 || fb.MedicalRecordID == 0 {
		s.badRequest(c, "assessment_id and medical_record_id are required", nil)
		return
	}
	if !fb.ChosenTreatment.IsValid() || !fb.RecommendedTreatment.IsValid() {
		s.badRequest(c, "unknown treatment type", nil)
		return
	}

	if err := s.deps.Feedback.Save(c.Request.Context(), &fb); err != nil {
		s.respondError(c, err, "failed to save feedback")
		return
	}

	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleGetFeedback(c *gin.Context) {
	assessmentID, ok := pathID(c, "assessmentID")
	if !ok {
		return
	}

	fb, err := s.deps.Feedback.Get(c.Request.Context(), assessmentID)
	if err != nil {
		s.respondError(c, err, "failed to load feedback")
		return
	}
	if fb == nil {
		s.respondError(c, domain.ErrNotFound, "feedback not found")
		return
	}

	c.JSON(http.StatusOK, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := s.deps.Feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err, "failed to list feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": entries})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	stats, err := s.deps.Feedback.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to compute feedback stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// pathID parses a numeric path parameter, responding 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrCodeInvalidInput, name+" must be a positive integer", "", c.GetString("correlation_id")))
		return 0, false
	}
	return id, true
}

func (s *Server) badRequest(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest,
		domain.NewAPIError(domain.ErrCodeInvalidInput, message, details, c.GetString("correlation_id")))
}

// respondError maps service errors to HTTP responses without leaking
// internal detail on 5xx paths.
func (s *Server) respondError(c *gin.Context, err error, message string) {
	correlationID := c.GetString("correlation_id")

	if errors.Is(err, domain.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound,
			domain.NewAPIError(domain.ErrCodeNotFound, message, "", correlationID))
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrCodeValidation, validationErr.Message, validationErr.Field, correlationID))
		return
	}

	s.logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"path":           c.FullPath(),
	}).WithError(err).Error(message)

	c.AbortWithStatusJSON(http.StatusInternalServerError,
		domain.NewAPIError(domain.ErrCodeInternalServer, message, "", correlationID))
}
