package handler

import (
	"net/http"

	"github.com/cgpaplus/exam-core/internal/response"
	"github.com/cgpaplus/exam-core/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MonitorHandler serves the admin read models.
type MonitorHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// GetLiveView godoc
// GET /api/exam/live
// Polled by the admin monitor; recomputed from storage on every call.
func (h *MonitorHandler) GetLiveView(c *gin.Context) {
	view, err := h.monitorService.GetLiveView(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build live view")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// GetLeaderboard godoc
// GET /api/exam/leaderboard
func (h *MonitorHandler) GetLeaderboard(c *gin.Context) {
	board, err := h.monitorService.GetLeaderboard(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build leaderboard")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, board)
}
