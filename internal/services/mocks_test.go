package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/repository"
)

// MockTowerRepository is a mock implementation of TowerRepository for testing
type MockTowerRepository struct {
	mock.Mock
}

func (m *MockTowerRepository) InsertTowers(ctx context.Context, towers []models.Tower) (int64, error) {
	args := m.Called(ctx, towers)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTowerRepository) ReplaceTowers(ctx context.Context, towers []models.Tower) (int64, error) {
	args := m.Called(ctx, towers)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTowerRepository) ListTowers(ctx context.Context) ([]models.Tower, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tower), args.Error(1)
}

func (m *MockTowerRepository) ListTowersInBox(ctx context.Context, box repository.BoundingBox) ([]models.Tower, error) {
	args := m.Called(ctx, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tower), args.Error(1)
}

func (m *MockTowerRepository) GetTower(ctx context.Context, towerID int64) (*models.Tower, error) {
	args := m.Called(ctx, towerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tower), args.Error(1)
}

func (m *MockTowerRepository) CountTowers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTowerRepository) ListVisitedTowerIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockVisitRepository is a mock implementation of VisitRepository for testing
type MockVisitRepository struct {
	mock.Mock
}

func (m *MockVisitRepository) GetVisit(ctx context.Context, visitID int64) (*models.Visit, error) {
	args := m.Called(ctx, visitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Visit), args.Error(1)
}

func (m *MockVisitRepository) ListVisitViews(ctx context.Context) ([]models.VisitView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VisitView), args.Error(1)
}

func (m *MockVisitRepository) ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error) {
	args := m.Called(ctx, towerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Visit), args.Error(1)
}

func (m *MockVisitRepository) InsertVisit(ctx context.Context, visit models.Visit) (int64, error) {
	args := m.Called(ctx, visit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVisitRepository) InsertVisits(ctx context.Context, visits []models.Visit) (int64, error) {
	args := m.Called(ctx, visits)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVisitRepository) UpdateVisit(ctx context.Context, visit models.Visit) (bool, error) {
	args := m.Called(ctx, visit)
	return args.Bool(0), args.Error(1)
}

func (m *MockVisitRepository) DeleteVisit(ctx context.Context, visitID int64) (bool, error) {
	args := m.Called(ctx, visitID)
	return args.Bool(0), args.Error(1)
}

func (m *MockVisitRepository) CountVisitedTowers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPreferencesRepository is a mock implementation of PreferencesRepository for testing
type MockPreferencesRepository struct {
	mock.Mock
}

func (m *MockPreferencesRepository) GetPreferences(ctx context.Context) (models.Preferences, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Preferences), args.Error(1)
}

func (m *MockPreferencesRepository) UpdatePreferences(ctx context.Context, prefs models.Preferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *MockPreferencesRepository) GetDataVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockPreferencesRepository) SetDataVersion(ctx context.Context, version string) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}
