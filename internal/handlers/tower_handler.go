package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/bellfinder/internal/dove"
	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
	"github.com/stwalsh4118/bellfinder/internal/middleware"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

// TowerHandler handles tower directory HTTP requests.
type TowerHandler struct {
	towers services.TowerService
	visits services.VisitService
}

// NewTowerHandler creates a new TowerHandler instance.
func NewTowerHandler(towers services.TowerService, visits services.VisitService) *TowerHandler {
	return &TowerHandler{towers: towers, visits: visits}
}

// ListTowersRequest represents the query parameters for the tower list.
type ListTowersRequest struct {
	Query   string `form:"q" binding:"max=100"`
	County  string `form:"county" binding:"max=50"`
	Visited *bool  `form:"visited"`
	Prefs   bool   `form:"prefs"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=10000"`
}

// NearbyRequest represents the query parameters for the nearby endpoint.
// Lat and Lng are pointers so that zero coordinates still count as given.
type NearbyRequest struct {
	Lat    *float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lng    *float64 `form:"lng" binding:"required,min=-180,max=180"`
	Radius float64  `form:"radius" binding:"omitempty,gt=0,max=200000"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Prefs  bool     `form:"prefs"`
}

// TowerListResponse represents the response for the tower list.
type TowerListResponse struct {
	Towers []services.TowerSummary `json:"towers"`
	Count  int                     `json:"count"`
}

// NearbyResponse represents the response for the nearby endpoint.
type NearbyResponse struct {
	Towers []services.TowerDistance `json:"towers"`
	Count  int                      `json:"count"`
}

// TowerVisitsResponse lists the visits to one tower.
type TowerVisitsResponse struct {
	Visits []models.Visit `json:"visits"`
	Count  int            `json:"count"`
}

// List handles GET /api/v1/towers.
func (h *TowerHandler) List(c *gin.Context) {
	var req ListTowersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	towers, err := h.towers.SearchTowers(c.Request.Context(), services.TowerFilter{
		Query:            req.Query,
		County:           req.County,
		Visited:          req.Visited,
		ApplyPreferences: req.Prefs,
		Limit:            req.Limit,
	})
	if err != nil {
		apierrors.InternalServerError(c, "Failed to search towers", err)
		return
	}

	c.JSON(http.StatusOK, TowerListResponse{Towers: towers, Count: len(towers)})
}

// Nearby handles GET /api/v1/towers/nearby.
// Radius is in meters; zero uses the configured default.
func (h *TowerHandler) Nearby(c *gin.Context) {
	var req NearbyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing nearby request", map[string]interface{}{
			"lat":    *req.Lat,
			"lng":    *req.Lng,
			"radius": req.Radius,
		})
	}

	towers, err := h.towers.NearbyTowers(c.Request.Context(), services.NearbyQuery{
		Lat:              *req.Lat,
		Lng:              *req.Lng,
		RadiusMeters:     req.Radius,
		Limit:            req.Limit,
		ApplyPreferences: req.Prefs,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCoordinates) || errors.Is(err, services.ErrInvalidRadius) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to query nearby towers", err)
		return
	}

	c.JSON(http.StatusOK, NearbyResponse{Towers: towers, Count: len(towers)})
}

// Get handles GET /api/v1/towers/:id.
func (h *TowerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "tower")
	if !ok {
		return
	}

	tower, err := h.towers.GetTower(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTowerNotFound) {
			apierrors.NotFound(c, "Tower not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to query tower", err)
		return
	}

	c.JSON(http.StatusOK, tower)
}

// Visits handles GET /api/v1/towers/:id/visits.
func (h *TowerHandler) Visits(c *gin.Context) {
	id, ok := pathID(c, "id", "tower")
	if !ok {
		return
	}

	visits, err := h.visits.ListTowerVisits(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTowerNotFound) {
			apierrors.NotFound(c, "Tower not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to query tower visits", err)
		return
	}

	c.JSON(http.StatusOK, TowerVisitsResponse{Visits: visits, Count: len(visits)})
}

// Import handles POST /api/v1/towers/import. The Dove file is the request
// body or the multipart "file" field. A rejected file answers 422 and
// leaves the directory as it was.
func (h *TowerHandler) Import(c *gin.Context) {
	body, err := openUpload(c)
	if err != nil {
		respondUploadError(c, err)
		return
	}
	defer body.Close()

	report, err := h.towers.ImportDove(c.Request.Context(), body)
	if err != nil {
		var feedErr *dove.FeedError
		switch {
		case errors.As(err, &feedErr):
			apierrors.FeedRejected(c, feedErr.Error(), feedErrorDetails(feedErr))
		case errors.Is(err, services.ErrEmptyFeed):
			details := map[string]interface{}{"reason": services.ErrEmptyFeed.Error()}
			if report != nil {
				details["rows"] = report.Rows
				details["skipped"] = len(report.Skipped)
			}
			apierrors.FeedRejected(c, "Dove file contains no usable towers", details)
		case uploadTooLarge(c, err):
		default:
			apierrors.InternalServerError(c, "Failed to import Dove file", err)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

func feedErrorDetails(e *dove.FeedError) map[string]interface{} {
	details := map[string]interface{}{"reason": e.Kind.Error()}
	if e.Column != "" {
		details["column"] = e.Column
	}
	if e.Row > 0 {
		details["row"] = e.Row
		details["fields"] = e.Got
		details["expected_fields"] = e.Want
	}
	return details
}

// Stats handles GET /api/v1/stats.
func (h *TowerHandler) Stats(c *gin.Context) {
	stats, err := h.towers.Stats(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
