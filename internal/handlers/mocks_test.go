package handlers

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/services"
)

// MockTowerService is a mock implementation of TowerService for testing
type MockTowerService struct {
	mock.Mock
}

func (m *MockTowerService) ImportDove(ctx context.Context, r io.Reader) (*services.ImportReport, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body))
	report, _ := args.Get(0).(*services.ImportReport)
	return report, args.Error(1)
}

func (m *MockTowerService) SeedDove(ctx context.Context, path, version string) (*services.ImportReport, error) {
	args := m.Called(ctx, path, version)
	report, _ := args.Get(0).(*services.ImportReport)
	return report, args.Error(1)
}

func (m *MockTowerService) SearchTowers(ctx context.Context, filter services.TowerFilter) ([]services.TowerSummary, error) {
	args := m.Called(ctx, filter)
	towers, _ := args.Get(0).([]services.TowerSummary)
	return towers, args.Error(1)
}

func (m *MockTowerService) NearbyTowers(ctx context.Context, q services.NearbyQuery) ([]services.TowerDistance, error) {
	args := m.Called(ctx, q)
	towers, _ := args.Get(0).([]services.TowerDistance)
	return towers, args.Error(1)
}

func (m *MockTowerService) GetTower(ctx context.Context, towerID int64) (*services.TowerDetails, error) {
	args := m.Called(ctx, towerID)
	tower, _ := args.Get(0).(*services.TowerDetails)
	return tower, args.Error(1)
}

func (m *MockTowerService) Stats(ctx context.Context) (*services.Stats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*services.Stats)
	return stats, args.Error(1)
}

// MockVisitService is a mock implementation of VisitService for testing
type MockVisitService struct {
	mock.Mock
}

func (m *MockVisitService) ListVisits(ctx context.Context, query string) ([]models.VisitView, error) {
	args := m.Called(ctx, query)
	visits, _ := args.Get(0).([]models.VisitView)
	return visits, args.Error(1)
}

func (m *MockVisitService) GetVisit(ctx context.Context, visitID int64) (*models.Visit, error) {
	args := m.Called(ctx, visitID)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitService) ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error) {
	args := m.Called(ctx, towerID)
	visits, _ := args.Get(0).([]models.Visit)
	return visits, args.Error(1)
}

func (m *MockVisitService) CreateVisit(ctx context.Context, in services.VisitInput) (*models.Visit, error) {
	args := m.Called(ctx, in)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitService) UpdateVisit(ctx context.Context, visitID int64, in services.VisitInput) (*models.Visit, error) {
	args := m.Called(ctx, visitID, in)
	visit, _ := args.Get(0).(*models.Visit)
	return visit, args.Error(1)
}

func (m *MockVisitService) DeleteVisit(ctx context.Context, visitID int64) error {
	args := m.Called(ctx, visitID)
	return args.Error(0)
}

func (m *MockVisitService) ExportVisits(ctx context.Context, w io.Writer) (int, error) {
	args := m.Called(ctx)
	if data := args.String(0); data != "" {
		if _, err := io.WriteString(w, data); err != nil {
			return 0, err
		}
	}
	return args.Int(1), args.Error(2)
}

func (m *MockVisitService) ImportVisits(ctx context.Context, r io.Reader) (*services.BackupReport, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body))
	report, _ := args.Get(0).(*services.BackupReport)
	return report, args.Error(1)
}

// MockPreferencesService is a mock implementation of PreferencesService for testing
type MockPreferencesService struct {
	mock.Mock
}

func (m *MockPreferencesService) GetPreferences(ctx context.Context) (models.Preferences, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Preferences), args.Error(1)
}

func (m *MockPreferencesService) UpdatePreferences(ctx context.Context, prefs models.Preferences) (models.Preferences, error) {
	args := m.Called(ctx, prefs)
	return args.Get(0).(models.Preferences), args.Error(1)
}

var (
	_ services.TowerService       = (*MockTowerService)(nil)
	_ services.VisitService       = (*MockVisitService)(nil)
	_ services.PreferencesService = (*MockPreferencesService)(nil)
)
