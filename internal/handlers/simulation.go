package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/requestdata"
	"github.com/yungbote/brandpulse-backend/internal/services"
)

type SimulationHandler struct {
	log    *logger.Logger
	simSvc services.SimulationService
}

func NewSimulationHandler(log *logger.Logger, simSvc services.SimulationService) *SimulationHandler {
	return &SimulationHandler{
		log:    log.With("handler", "SimulationHandler"),
		simSvc: simSvc,
	}
}

// POST /api/simulations
// Enqueues a run over the user's full persona/post cross product and returns
// 202 with the run id. Progress arrives on the user's SSE channel.
func (h *SimulationHandler) Trigger(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	run, err := h.simSvc.EnqueueRun(c.Request.Context(), rd.UserID)
	if err != nil {
		if strings.Contains(err.Error(), "exist for this user") {
			RespondError(c, http.StatusUnprocessableEntity, "simulation_inputs_missing", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "simulation_enqueue_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": run.Status})
}

// GET /api/simulations/:id
func (h *SimulationHandler) GetRun(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "run_id_invalid", fmt.Errorf("invalid run id"))
		return
	}
	run, err := h.simSvc.GetRun(c.Request.Context(), rd.UserID, runID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "run_not_found", err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

// GET /api/simulations/ranking
// Current ranking computed from all stored results for the user's posts.
func (h *SimulationHandler) GetRanking(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	ranked, err := h.simSvc.GetRanking(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "ranking_failed", err)
		return
	}
	RespondOK(c, gin.H{"ranking": ranked})
}
