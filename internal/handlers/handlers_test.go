package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/bellfinder/internal/dove"
	apierrors "github.com/stwalsh4118/bellfinder/internal/errors"
	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/middleware"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := apierrors.RegisterTranslations(v); err != nil {
			panic(err)
		}
	}
}

type testServer struct {
	router *gin.Engine
	towers *MockTowerService
	visits *MockVisitService
	prefs  *MockPreferencesService
}

func newTestServer() *testServer {
	s := &testServer{
		towers: new(MockTowerService),
		visits: new(MockVisitService),
		prefs:  new(MockPreferencesService),
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))

	s.router = gin.New()
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(logger.Nop(), nil))
	RegisterRoutes(
		s.router.Group("/api/v1"),
		NewTowerHandler(s.towers, s.visits),
		NewVisitHandler(s.visits, clock),
		NewPreferencesHandler(s.prefs),
	)
	return s
}

func (s *testServer) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(target string) *httptest.ResponseRecorder {
	return s.do(http.MethodGet, target, nil, "")
}

func (s *testServer) sendJSON(method, target, body string) *httptest.ResponseRecorder {
	return s.do(method, target, strings.NewReader(body), "application/json")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorDetail {
	t.Helper()
	var response apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	assert.NotEmpty(t, response.Error.RequestID)
	return response.Error
}

func multipartBody(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "upload.txt")
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestListTowers_PassesFilter(t *testing.T) {
	s := newTestServer()
	want := services.TowerFilter{
		Query:            "abb",
		County:           "Hants",
		Visited:          boolPtr(false),
		ApplyPreferences: true,
		Limit:            5,
	}
	s.towers.On("SearchTowers", mock.Anything, want).Return([]services.TowerSummary{
		{
			Tower:       models.Tower{TowerID: 11389, Place: "Abbotts Ann"},
			DisplayName: "Abbotts Ann, S Mary",
			Position:    models.Point{Lat: 51.19014, Lng: -1.53233},
		},
	}, nil)

	w := s.get("/api/v1/towers?q=abb&county=Hants&visited=false&prefs=true&limit=5")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response TowerListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "Abbotts Ann, S Mary", response.Towers[0].DisplayName)
	assert.Equal(t, models.Point{Lat: 51.19014, Lng: -1.53233}, response.Towers[0].Position)
	assert.Contains(t, w.Body.String(), `"position":{"type":"Point","coordinates":[-1.53233,51.19014]}`)
	s.towers.AssertExpectations(t)
}

func TestListTowers_InvalidLimit(t *testing.T) {
	s := newTestServer()

	w := s.get("/api/v1/towers?limit=-1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, apierrors.ErrValidation, detail.Code)
	assert.Contains(t, detail.Details, "limit")
	s.towers.AssertNotCalled(t, "SearchTowers", mock.Anything, mock.Anything)
}

func TestNearbyTowers(t *testing.T) {
	t.Run("zero coordinates are accepted", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("NearbyTowers", mock.Anything, services.NearbyQuery{Lat: 0, Lng: 0, RadiusMeters: 5000}).
			Return([]services.TowerDistance{}, nil)

		w := s.get("/api/v1/towers/nearby?lat=0&lng=0&radius=5000")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"towers":[],"count":0}`, w.Body.String())
	})

	t.Run("missing latitude", func(t *testing.T) {
		s := newTestServer()

		w := s.get("/api/v1/towers/nearby?lng=-1.5")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, apierrors.ErrValidation, detail.Code)
		assert.Equal(t, "lat is a required field", detail.Details["lat"])
	})

	t.Run("latitude out of range", func(t *testing.T) {
		s := newTestServer()

		w := s.get("/api/v1/towers/nearby?lat=91&lng=0")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "lat")
	})

	t.Run("non-numeric coordinate", func(t *testing.T) {
		s := newTestServer()

		w := s.get("/api/v1/towers/nearby?lat=north&lng=0")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrBadRequest, decodeError(t, w).Code)
	})

	t.Run("service rejects radius", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("NearbyTowers", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: too large", services.ErrInvalidRadius))

		w := s.get("/api/v1/towers/nearby?lat=51&lng=-1")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTower(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("GetTower", mock.Anything, int64(11388)).Return(&services.TowerDetails{
			Tower:       models.Tower{TowerID: 11388, Place: "Winchester", Bells: 12, Weight: 4649},
			DisplayName: "Winchester, Cathedral",
			TenorWeight: "41-2-1",
			RoundedCwt:  42,
			DoveURL:     "https://dove.cccbr.org.uk/detail.php?TowerBase=11388",
		}, nil)

		w := s.get("/api/v1/towers/11388")

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "41-2-1", got["tenorWeight"])
		assert.Equal(t, float64(11388), got["towerId"])
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("GetTower", mock.Anything, int64(9)).Return(nil, services.ErrTowerNotFound)

		w := s.get("/api/v1/towers/9")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apierrors.ErrNotFound, decodeError(t, w).Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		s := newTestServer()

		for _, id := range []string{"abc", "0", "-3"} {
			w := s.get("/api/v1/towers/" + id)
			assert.Equal(t, http.StatusBadRequest, w.Code, id)
		}
		s.towers.AssertNotCalled(t, "GetTower", mock.Anything, mock.Anything)
	})
}

func TestTowerVisits(t *testing.T) {
	s := newTestServer()
	s.visits.On("ListTowerVisits", mock.Anything, int64(11387)).Return([]models.Visit{
		{VisitID: 1, TowerID: 11387, Date: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), Peal: true},
	}, nil)
	s.visits.On("ListTowerVisits", mock.Anything, int64(5)).Return(nil, services.ErrTowerNotFound)

	w := s.get("/api/v1/towers/11387/visits")
	require.Equal(t, http.StatusOK, w.Code)
	var response TowerVisitsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.True(t, response.Visits[0].Peal)

	assert.Equal(t, http.StatusNotFound, s.get("/api/v1/towers/5/visits").Code)
}

const doveUpload = "TowerBase\\Place\\PlaceCL\\County\\Dedicn\\Bells\\Wt\\UR\\PracN\\PrXF\\Lat\\Long\n" +
	"11387\\Lockerley\\\\Hants\\S John\\6\\1387\\\\Tue\\\\51.03862\\-1.57589\n"

func TestImportDove(t *testing.T) {
	report := &services.ImportReport{Rows: 1, Parsed: 1, Inserted: 1, Skipped: []dove.RowError{}}

	t.Run("raw body", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("ImportDove", mock.Anything, doveUpload).Return(report, nil)

		w := s.do(http.MethodPost, "/api/v1/towers/import", strings.NewReader(doveUpload), "text/plain")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"rows":1,"parsed":1,"inserted":1,"skipped":[]}`, w.Body.String())
	})

	t.Run("multipart upload", func(t *testing.T) {
		s := newTestServer()
		s.towers.On("ImportDove", mock.Anything, doveUpload).Return(report, nil)
		body, contentType := multipartBody(t, "file", doveUpload)

		w := s.do(http.MethodPost, "/api/v1/towers/import", body, contentType)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		s.towers.AssertExpectations(t)
	})

	t.Run("multipart without file field", func(t *testing.T) {
		s := newTestServer()
		body, contentType := multipartBody(t, "attachment", doveUpload)

		w := s.do(http.MethodPost, "/api/v1/towers/import", body, contentType)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		s.towers.AssertNotCalled(t, "ImportDove", mock.Anything, mock.Anything)
	})

	t.Run("missing column rejects feed", func(t *testing.T) {
		s := newTestServer()
		feedErr := &dove.FeedError{Kind: dove.ErrMissingRequiredColumn, Column: "Lat"}
		s.towers.On("ImportDove", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %w", services.ErrFeedRejected, feedErr))

		w := s.do(http.MethodPost, "/api/v1/towers/import", strings.NewReader("TowerBase\\Place\n"), "text/plain")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, apierrors.ErrFeedRejected, detail.Code)
		assert.Equal(t, "Lat", detail.Details["column"])
		assert.Equal(t, "missing required column", detail.Details["reason"])
	})

	t.Run("field count mismatch cites row", func(t *testing.T) {
		s := newTestServer()
		feedErr := &dove.FeedError{Kind: dove.ErrFieldCountMismatch, Row: 3, Got: 11, Want: 12}
		s.towers.On("ImportDove", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %w", services.ErrFeedRejected, feedErr))

		w := s.do(http.MethodPost, "/api/v1/towers/import", strings.NewReader("x"), "text/plain")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, float64(3), detail.Details["row"])
		assert.Equal(t, float64(11), detail.Details["fields"])
	})

	t.Run("no usable towers", func(t *testing.T) {
		s := newTestServer()
		empty := &services.ImportReport{Rows: 2, Skipped: []dove.RowError{{Row: 1}, {Row: 2}}}
		s.towers.On("ImportDove", mock.Anything, mock.Anything).Return(empty, services.ErrEmptyFeed)

		w := s.do(http.MethodPost, "/api/v1/towers/import", strings.NewReader("x"), "text/plain")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, float64(2), detail.Details["skipped"])
		assert.Equal(t, services.ErrEmptyFeed.Error(), detail.Details["reason"])
	})
}

func TestStats(t *testing.T) {
	s := newTestServer()
	s.towers.On("Stats", mock.Anything).Return(&services.Stats{Towers: 7012, VisitedTowers: 41}, nil)

	w := s.get("/api/v1/stats")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"towers":7012,"visitedTowers":41}`, w.Body.String())
}

func TestCreateVisit(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		s := newTestServer()
		date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
		s.visits.On("CreateVisit", mock.Anything, services.VisitInput{
			TowerID: 11387,
			Date:    &date,
			Notes:   strPtr("Sunday service"),
			Peal:    true,
		}).Return(&models.Visit{VisitID: 12, TowerID: 11387, Date: date, Notes: strPtr("Sunday service"), Peal: true}, nil)

		w := s.sendJSON(http.MethodPost, "/api/v1/visits",
			`{"towerId":11387,"date":"2024-01-15","notes":"Sunday service","peal":true}`)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "/api/v1/visits/12", w.Header().Get("Location"))
		s.visits.AssertExpectations(t)
	})

	t.Run("date defaults in the service", func(t *testing.T) {
		s := newTestServer()
		s.visits.On("CreateVisit", mock.Anything, services.VisitInput{TowerID: 11387}).
			Return(&models.Visit{VisitID: 13, TowerID: 11387}, nil)

		w := s.sendJSON(http.MethodPost, "/api/v1/visits", `{"towerId":11387}`)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid date", func(t *testing.T) {
		s := newTestServer()

		w := s.sendJSON(http.MethodPost, "/api/v1/visits", `{"towerId":11387,"date":"15/01/2024"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, apierrors.ErrValidation, detail.Code)
		assert.Contains(t, detail.Details, "date")
	})

	t.Run("missing tower", func(t *testing.T) {
		s := newTestServer()

		w := s.sendJSON(http.MethodPost, "/api/v1/visits", `{"peal":true}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "towerId is a required field", decodeError(t, w).Details["towerId"])
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer()

		w := s.sendJSON(http.MethodPost, "/api/v1/visits", `{"towerId":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrBadRequest, decodeError(t, w).Code)
	})

	t.Run("unknown tower", func(t *testing.T) {
		s := newTestServer()
		s.visits.On("CreateVisit", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: %d", services.ErrTowerNotFound, 5))

		w := s.sendJSON(http.MethodPost, "/api/v1/visits", `{"towerId":5}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "tower not found: 5", decodeError(t, w).Message)
	})
}

func TestUpdateVisit_NotFound(t *testing.T) {
	s := newTestServer()
	s.visits.On("UpdateVisit", mock.Anything, int64(99), mock.Anything).Return(nil, services.ErrVisitNotFound)

	w := s.sendJSON(http.MethodPut, "/api/v1/visits/99", `{"towerId":11387,"date":"2024-01-15"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateVisit_AcceptsFetchedVisit(t *testing.T) {
	s := newTestServer()
	date := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	stored := &models.Visit{VisitID: 4, TowerID: 11387, Date: date, Notes: strPtr("Evensong"), Quarter: true}
	s.visits.On("GetVisit", mock.Anything, int64(4)).Return(stored, nil)
	s.visits.On("UpdateVisit", mock.Anything, int64(4), services.VisitInput{
		TowerID: 11387,
		Date:    &date,
		Notes:   strPtr("Evensong"),
		Quarter: true,
	}).Return(stored, nil)

	got := s.get("/api/v1/visits/4")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"date":"2024-05-01"`)

	w := s.sendJSON(http.MethodPut, "/api/v1/visits/4", got.Body.String())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.visits.AssertExpectations(t)
}

func TestDeleteVisit(t *testing.T) {
	s := newTestServer()
	s.visits.On("DeleteVisit", mock.Anything, int64(1)).Return(nil)
	s.visits.On("DeleteVisit", mock.Anything, int64(2)).Return(services.ErrVisitNotFound)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/visits/1", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/v1/visits/2", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/v1/visits/x", nil, "").Code)
}

func TestListVisits(t *testing.T) {
	s := newTestServer()
	s.visits.On("ListVisits", mock.Anything, "hamp").Return([]models.VisitView{
		{Visit: models.Visit{VisitID: 2, TowerID: 11388}, Place: "Winchester", Bells: 12},
	}, nil)

	w := s.get("/api/v1/visits?q=hamp")

	require.Equal(t, http.StatusOK, w.Code)
	var response VisitListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "Winchester", response.Visits[0].Place)
}

func TestGetVisit(t *testing.T) {
	s := newTestServer()
	s.visits.On("GetVisit", mock.Anything, int64(3)).Return(&models.Visit{VisitID: 3, TowerID: 11387, Quarter: true}, nil)

	w := s.get("/api/v1/visits/3")

	require.Equal(t, http.StatusOK, w.Code)
	var got models.Visit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Quarter)
}

func TestExportVisits(t *testing.T) {
	s := newTestServer()
	csv := "VisitId,TowerBase,Date,Notes,Peal,Quarter,Place\n1,11387,2023-05-01,,Y,,\"Lockerley, S John\"\n"
	s.visits.On("ExportVisits", mock.Anything).Return(csv, 1, nil)

	w := s.get("/api/v1/visits/export")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="bellfinder-visits-2024-04-26.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, csv, w.Body.String())
}

func TestImportVisits(t *testing.T) {
	backup := "TowerBase,Date\n11387,2023-05-01\n"

	t.Run("imported", func(t *testing.T) {
		s := newTestServer()
		s.visits.On("ImportVisits", mock.Anything, backup).
			Return(&services.BackupReport{Rows: 1, Inserted: 1}, nil)

		w := s.do(http.MethodPost, "/api/v1/visits/import", strings.NewReader(backup), "text/csv")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"rows":1,"inserted":1,"restore":false}`, w.Body.String())
	})

	t.Run("malformed row", func(t *testing.T) {
		s := newTestServer()
		s.visits.On("ImportVisits", mock.Anything, mock.Anything).
			Return(nil, &services.BackupError{Row: 4, Column: "Date", Err: fmt.Errorf("bad date")})

		w := s.do(http.MethodPost, "/api/v1/visits/import", strings.NewReader(backup), "text/csv")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		detail := decodeError(t, w)
		assert.Equal(t, float64(4), detail.Details["row"])
		assert.Equal(t, "Date", detail.Details["column"])
	})
}

func TestPreferences(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		s := newTestServer()
		s.prefs.On("GetPreferences", mock.Anything).Return(models.DefaultPreferences(), nil)

		w := s.get("/api/v1/preferences")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"bells":"345680T","unringable":false}`, w.Body.String())
	})

	t.Run("update", func(t *testing.T) {
		s := newTestServer()
		prefs := models.Preferences{Bells: "8T", Unringable: true}
		s.prefs.On("UpdatePreferences", mock.Anything, prefs).Return(prefs, nil)

		w := s.sendJSON(http.MethodPut, "/api/v1/preferences", `{"bells":"8T","unringable":true}`)

		require.Equal(t, http.StatusOK, w.Code)
		s.prefs.AssertExpectations(t)
	})

	t.Run("false and empty are explicit values", func(t *testing.T) {
		s := newTestServer()
		prefs := models.Preferences{}
		s.prefs.On("UpdatePreferences", mock.Anything, prefs).Return(prefs, nil)

		w := s.sendJSON(http.MethodPut, "/api/v1/preferences", `{"bells":"","unringable":false}`)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		s := newTestServer()

		w := s.sendJSON(http.MethodPut, "/api/v1/preferences", `{"bells":"8"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Details, "unringable")
	})

	t.Run("unknown bells character", func(t *testing.T) {
		s := newTestServer()
		s.prefs.On("UpdatePreferences", mock.Anything, mock.Anything).
			Return(models.Preferences{}, fmt.Errorf("%w: invalid bells filter character 'X'", services.ErrInvalidPreferences))

		w := s.sendJSON(http.MethodPut, "/api/v1/preferences", `{"bells":"8X","unringable":false}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.BellsFilterChars, decodeError(t, w).Details["allowed"])
	})
}
