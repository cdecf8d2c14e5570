package handler

import (
	"errors"
	"net/http"

	"github.com/cgpaplus/exam-core/internal/middleware"
	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/response"
	"github.com/cgpaplus/exam-core/internal/service"
	"github.com/cgpaplus/exam-core/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExamHandler serves the participant endpoints: status, progress and submit.
type ExamHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessionService *service.ExamSessionService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetStatus godoc
// GET /api/exam/status
// Reports whether the caller already has a result.
func (h *ExamHandler) GetStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	status, err := h.sessionService.GetStatus(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("failed to get exam status")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// UpdateProgress godoc
// POST /api/exam/progress
// Upserts the caller's live progress row. Clients treat this as fire-and-forget.
func (h *ExamHandler) UpdateProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.UpdateProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.UpdateProgress(c.Request.Context(), claims.UserID, req); err != nil {
		h.log.Warn().Err(err).Int("user_id", claims.UserID).Msg("progress update lost")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// SubmitExam godoc
// POST /api/exam/submit
// Grades and stores the caller's only result.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.Submit(c.Request.Context(), claims.UserID, req.Answers, *req.StartedAt)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
			return
		}
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("failed to submit exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.SubmitExamResponse{
		ResultSummary: res.Summary(),
		Message:       "Exam submitted successfully",
	})
}
