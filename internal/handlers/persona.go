package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/requestdata"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type PersonaHandler struct {
	log      *logger.Logger
	personas repos.PersonaRepo
}

func NewPersonaHandler(log *logger.Logger, personas repos.PersonaRepo) *PersonaHandler {
	return &PersonaHandler{
		log:      log.With("handler", "PersonaHandler"),
		personas: personas,
	}
}

type personaRequest struct {
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	Industry           string   `json:"industry"`
	AgeRange           string   `json:"age_range"`
	Bio                string   `json:"bio"`
	Interests          []string `json:"interests"`
	PainPoints         []string `json:"pain_points"`
	ContentPreferences string   `json:"content_preferences"`
	BehaviorType       string   `json:"behavior_type"`
	Platform           string   `json:"platform"`
}

// POST /api/personas
// Creates one or more panel members. Behavior types must come from the
// calibration table; unknown values are rejected here rather than silently
// remapped at simulation time.
func (h *PersonaHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Personas []personaRequest `json:"personas"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Personas) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	personas := make([]*types.Persona, 0, len(req.Personas))
	for _, p := range req.Personas {
		if p.Name == "" {
			RespondError(c, http.StatusUnprocessableEntity, "persona_invalid", fmt.Errorf("persona name is required"))
			return
		}
		if !simulation.IsKnownBehaviorType(p.BehaviorType) {
			RespondError(c, http.StatusUnprocessableEntity, "persona_invalid",
				fmt.Errorf("unknown behavior type %q", p.BehaviorType))
			return
		}
		personas = append(personas, &types.Persona{
			ID:                 uuid.New(),
			UserID:             rd.UserID,
			Name:               p.Name,
			Title:              p.Title,
			Company:            p.Company,
			Industry:           p.Industry,
			AgeRange:           p.AgeRange,
			Bio:                p.Bio,
			Interests:          datatypes.NewJSONSlice(p.Interests),
			PainPoints:         datatypes.NewJSONSlice(p.PainPoints),
			ContentPreferences: p.ContentPreferences,
			BehaviorType:       p.BehaviorType,
			Platform:           p.Platform,
		})
	}

	created, err := h.personas.Create(c.Request.Context(), nil, personas)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "persona_create_failed", err)
		return
	}
	h.log.Info("Personas created", "user_id", rd.UserID, "count", len(created))
	RespondOK(c, gin.H{"personas": created})
}

// GET /api/personas
func (h *PersonaHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	personas, err := h.personas.GetByUser(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "persona_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"personas": personas})
}
