package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

// VisitHandler handles visit log HTTP requests.
type VisitHandler struct {
	service services.VisitService
	clock   clockwork.Clock
}

// NewVisitHandler creates a new VisitHandler instance. The clock dates
// backup file names; nil uses the real clock.
func NewVisitHandler(service services.VisitService, clock clockwork.Clock) *VisitHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &VisitHandler{service: service, clock: clock}
}

// ListVisitsRequest represents the query parameters for the visit list.
type ListVisitsRequest struct {
	Query string `form:"q" binding:"max=100"`
}

// VisitRequest is the body of a create or update. An empty date means
// today.
type VisitRequest struct {
	TowerID int64   `json:"towerId" binding:"required,gt=0"`
	Date    string  `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Notes   *string `json:"notes" binding:"omitempty,max=4000"`
	Peal    bool    `json:"peal"`
	Quarter bool    `json:"quarter"`
}

// VisitListResponse represents the response for the visit list.
type VisitListResponse struct {
	Visits []models.VisitView `json:"visits"`
	Count  int                `json:"count"`
}

func (r VisitRequest) input() services.VisitInput {
	in := services.VisitInput{
		TowerID: r.TowerID,
		Notes:   r.Notes,
		Peal:    r.Peal,
		Quarter: r.Quarter,
	}
	if r.Date != "" {
		// Already checked by the datetime binding.
		if d, err := time.Parse(models.DateLayout, r.Date); err == nil {
			in.Date = &d
		}
	}
	return in
}

// List handles GET /api/v1/visits.
func (h *VisitHandler) List(c *gin.Context) {
	var req ListVisitsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	visits, err := h.service.ListVisits(c.Request.Context(), req.Query)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list visits", err)
		return
	}

	c.JSON(http.StatusOK, VisitListResponse{Visits: visits, Count: len(visits)})
}

// Get handles GET /api/v1/visits/:id.
func (h *VisitHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "visit")
	if !ok {
		return
	}

	visit, err := h.service.GetVisit(c.Request.Context(), id)
	if err != nil {
		h.respondVisitError(c, err, "Failed to query visit")
		return
	}

	c.JSON(http.StatusOK, visit)
}

// Create handles POST /api/v1/visits.
func (h *VisitHandler) Create(c *gin.Context) {
	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	visit, err := h.service.CreateVisit(c.Request.Context(), req.input())
	if err != nil {
		h.respondVisitError(c, err, "Failed to record visit")
		return
	}

	c.Header("Location", fmt.Sprintf("/api/v1/visits/%d", visit.VisitID))
	c.JSON(http.StatusCreated, visit)
}

// Update handles PUT /api/v1/visits/:id.
func (h *VisitHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", "visit")
	if !ok {
		return
	}

	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	visit, err := h.service.UpdateVisit(c.Request.Context(), id, req.input())
	if err != nil {
		h.respondVisitError(c, err, "Failed to update visit")
		return
	}

	c.JSON(http.StatusOK, visit)
}

// Delete handles DELETE /api/v1/visits/:id.
func (h *VisitHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id", "visit")
	if !ok {
		return
	}

	if err := h.service.DeleteVisit(c.Request.Context(), id); err != nil {
		h.respondVisitError(c, err, "Failed to delete visit")
		return
	}

	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/visits/export and downloads the visits
// backup as CSV.
func (h *VisitHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := h.service.ExportVisits(c.Request.Context(), &buf); err != nil {
		apierrors.InternalServerError(c, "Failed to export visits", err)
		return
	}

	filename := fmt.Sprintf("bellfinder-visits-%s.csv", h.clock.Now().Format(models.DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Import handles POST /api/v1/visits/import. The backup is the request
// body or the multipart "file" field. A malformed row rejects the whole
// file and nothing is stored.
func (h *VisitHandler) Import(c *gin.Context) {
	body, err := openUpload(c)
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer body.Close()

	report, err := h.service.ImportVisits(c.Request.Context(), body)
	if err != nil {
		var backupErr *services.BackupError
		switch {
		case errors.As(err, &backupErr):
			details := map[string]interface{}{"row": backupErr.Row}
			if backupErr.Column != "" {
				details["column"] = backupErr.Column
			}
			apierrors.BadRequest(c, backupErr.Error(), details)
		case uploadTooLarge(c, err):
		default:
			apierrors.InternalServerError(c, "Failed to import visits", err)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *VisitHandler) respondVisitError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrVisitNotFound):
		apierrors.NotFound(c, "Visit not found")
	case errors.Is(err, services.ErrTowerNotFound):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}
