package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

// PreferencesHandler handles the display preferences.
type PreferencesHandler struct {
	service services.PreferencesService
}

// NewPreferencesHandler creates a new PreferencesHandler instance.
func NewPreferencesHandler(service services.PreferencesService) *PreferencesHandler {
	return &PreferencesHandler{service: service}
}

// PreferencesRequest replaces both preferences. Pointers make each field
// required while still accepting false and "".
type PreferencesRequest struct {
	Bells      *string `json:"bells" binding:"required,max=10"`
	Unringable *bool   `json:"unringable" binding:"required"`
}

// Get handles GET /api/v1/preferences.
func (h *PreferencesHandler) Get(c *gin.Context) {
	prefs, err := h.service.GetPreferences(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to read preferences", err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// Update handles PUT /api/v1/preferences.
func (h *PreferencesHandler) Update(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	prefs, err := h.service.UpdatePreferences(c.Request.Context(), models.Preferences{
		Bells:      *req.Bells,
		Unringable: *req.Unringable,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidPreferences) {
			apierrors.BadRequest(c, err.Error(), map[string]interface{}{
				"allowed": models.BellsFilterChars,
			})
			return
		}
		apierrors.InternalServerError(c, "Failed to update preferences", err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}
