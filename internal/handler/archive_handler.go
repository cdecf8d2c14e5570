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
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ArchiveHandler serves reset and archive history.
type ArchiveHandler struct {
	archiveService *service.ArchiveService
	log            zerolog.Logger
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(archiveService *service.ArchiveService, log zerolog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		log:            log.With().Str("component", "archive_handler").Logger(),
	}
}

// ResetExam godoc
// POST /api/exam/reset
// Archives every completed result and clears live state. The body is optional.
func (h *ArchiveHandler) ResetExam(c *gin.Context) {
	var req model.ResetExamRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.archiveService.Reset(c.Request.Context(), req.Label)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNothingToArchive):
			response.Fail(c, http.StatusBadRequest, response.ErrNothingToArchive)
		case errors.Is(err, service.ErrResetInProgress):
			response.Fail(c, http.StatusConflict, response.ErrResetInProgress)
		default:
			h.log.Error().Err(err).Msg("failed to reset exam")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	if claims := middleware.GetClaims(c); claims != nil {
		h.log.Info().Int("admin_id", claims.UserID).Str("archive_id", resp.ArchiveID.String()).Msg("Reset triggered")
	}
	response.Success(c, http.StatusOK, resp)
}

// GetHistory godoc
// GET /api/exam/history
func (h *ArchiveHandler) GetHistory(c *gin.Context) {
	archives, err := h.archiveService.GetHistory(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list archives")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, archives)
}

// DeleteArchive godoc
// DELETE /api/exam/history/:id
func (h *ArchiveHandler) DeleteArchive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.archiveService.DeleteArchive(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrArchiveNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("archive_id", id.String()).Msg("failed to delete archive")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Archive deleted"})
}
