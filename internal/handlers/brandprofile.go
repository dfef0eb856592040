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
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type BrandProfileHandler struct {
	log      *logger.Logger
	profiles repos.BrandProfileRepo
}

func NewBrandProfileHandler(log *logger.Logger, profiles repos.BrandProfileRepo) *BrandProfileHandler {
	return &BrandProfileHandler{
		log:      log.With("handler", "BrandProfileHandler"),
		profiles: profiles,
	}
}

// PUT /api/brand-profile
// One profile per user; repeated calls overwrite.
func (h *BrandProfileHandler) Upsert(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		BrandName      string   `json:"brand_name"`
		WebsiteURL     string   `json:"website_url"`
		Industry       string   `json:"industry"`
		Tone           string   `json:"tone"`
		Description    string   `json:"description"`
		TargetAudience string   `json:"target_audience"`
		Keywords       []string `json:"keywords"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BrandName == "" {
		RespondError(c, http.StatusUnprocessableEntity, "brand_profile_invalid", fmt.Errorf("brand name is required"))
		return
	}

	profile, err := h.profiles.Upsert(c.Request.Context(), nil, &types.BrandProfile{
		UserID:         rd.UserID,
		BrandName:      req.BrandName,
		WebsiteURL:     req.WebsiteURL,
		Industry:       req.Industry,
		Tone:           req.Tone,
		Description:    req.Description,
		TargetAudience: req.TargetAudience,
		Keywords:       datatypes.NewJSONSlice(req.Keywords),
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "brand_profile_upsert_failed", err)
		return
	}
	RespondOK(c, gin.H{"brand_profile": profile})
}

// GET /api/brand-profile
func (h *BrandProfileHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	profile, err := h.profiles.GetByUser(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "brand_profile_get_failed", err)
		return
	}
	if profile == nil {
		RespondError(c, http.StatusNotFound, "brand_profile_not_found", fmt.Errorf("no brand profile for this user"))
		return
	}
	RespondOK(c, gin.H{"brand_profile": profile})
}
