package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/repository"
)

// VisitInput holds the editable fields of a visit. A nil Date means today.
type VisitInput struct {
	TowerID int64
	Date    *time.Time
	Notes   *string
	Peal    bool
	Quarter bool
}

// BackupReport summarises a visits backup import.
type BackupReport struct {
	Rows     int   `json:"rows"`
	Inserted int64 `json:"inserted"`
	Restore  bool  `json:"restore"`
}

// VisitService defines visit log operations.
type VisitService interface {
	// ListVisits returns visits newest first. A non-empty query keeps
	// visits whose place or county name has a word starting with it.
	ListVisits(ctx context.Context, query string) ([]models.VisitView, error)

	// GetVisit returns ErrVisitNotFound for an unknown id.
	GetVisit(ctx context.Context, visitID int64) (*models.Visit, error)

	// ListTowerVisits returns ErrTowerNotFound for an unknown tower.
	ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error)

	// CreateVisit returns ErrTowerNotFound when the tower does not exist.
	CreateVisit(ctx context.Context, in VisitInput) (*models.Visit, error)

	UpdateVisit(ctx context.Context, visitID int64, in VisitInput) (*models.Visit, error)
	DeleteVisit(ctx context.Context, visitID int64) error

	// ExportVisits writes every visit as a CSV backup and returns the
	// number of visits written.
	ExportVisits(ctx context.Context, w io.Writer) (int, error)

	// ImportVisits reads a CSV backup. A file with a VisitId column is a
	// restore: ids are kept and rows whose id exists are ignored. Otherwise
	// rows are appended as new visits. A malformed row rejects the whole
	// file with a *BackupError.
	ImportVisits(ctx context.Context, r io.Reader) (*BackupReport, error)
}

type visitService struct {
	visits repository.VisitRepository
	towers repository.TowerRepository
	clock  clockwork.Clock
	log    *logger.Logger
}

// NewVisitService creates a new instance of VisitService.
// A nil clock uses the real clock.
func NewVisitService(
	visits repository.VisitRepository,
	towers repository.TowerRepository,
	clock clockwork.Clock,
	log *logger.Logger,
) VisitService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &visitService{visits: visits, towers: towers, clock: clock, log: log}
}

func (s *visitService) ListVisits(ctx context.Context, query string) ([]models.VisitView, error) {
	views, err := s.visits.ListVisitViews(ctx)
	if err != nil {
		s.log.Error("Failed to list visits", err, nil)
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}

	pattern := wordStartPattern(query)
	if pattern == nil {
		return views, nil
	}

	filtered := []models.VisitView{}
	for _, v := range views {
		county := ""
		if v.County != nil {
			county = models.LookupCounty(*v.County)
		}
		if pattern.MatchString(v.Place) || (county != "" && pattern.MatchString(county)) {
			filtered = append(filtered, v)
		}
	}
	return filtered, nil
}

func (s *visitService) GetVisit(ctx context.Context, visitID int64) (*models.Visit, error) {
	visit, err := s.visits.GetVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visit: %w", err)
	}
	if visit == nil {
		return nil, ErrVisitNotFound
	}
	return visit, nil
}

func (s *visitService) ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error) {
	if err := s.requireTower(ctx, towerID); err != nil {
		return nil, err
	}
	visits, err := s.visits.ListTowerVisits(ctx, towerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tower visits: %w", err)
	}
	return visits, nil
}

func (s *visitService) CreateVisit(ctx context.Context, in VisitInput) (*models.Visit, error) {
	if err := s.requireTower(ctx, in.TowerID); err != nil {
		return nil, err
	}

	visit := s.visitFromInput(in)
	id, err := s.visits.InsertVisit(ctx, visit)
	if err != nil {
		s.log.Error("Failed to create visit", err, map[string]interface{}{
			"tower_id": in.TowerID,
		})
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}
	visit.VisitID = id

	s.log.Info("Visit recorded", map[string]interface{}{
		"visit_id": id,
		"tower_id": visit.TowerID,
		"date":     visit.Date.Format(models.DateLayout),
	})

	return &visit, nil
}

func (s *visitService) UpdateVisit(ctx context.Context, visitID int64, in VisitInput) (*models.Visit, error) {
	if err := s.requireTower(ctx, in.TowerID); err != nil {
		return nil, err
	}

	visit := s.visitFromInput(in)
	visit.VisitID = visitID

	found, err := s.visits.UpdateVisit(ctx, visit)
	if err != nil {
		s.log.Error("Failed to update visit", err, map[string]interface{}{
			"visit_id": visitID,
		})
		return nil, fmt.Errorf("failed to update visit: %w", err)
	}
	if !found {
		return nil, ErrVisitNotFound
	}

	return &visit, nil
}

func (s *visitService) DeleteVisit(ctx context.Context, visitID int64) error {
	found, err := s.visits.DeleteVisit(ctx, visitID)
	if err != nil {
		s.log.Error("Failed to delete visit", err, map[string]interface{}{
			"visit_id": visitID,
		})
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	if !found {
		return ErrVisitNotFound
	}

	s.log.Info("Visit deleted", map[string]interface{}{
		"visit_id": visitID,
	})
	return nil
}

func (s *visitService) ExportVisits(ctx context.Context, w io.Writer) (int, error) {
	views, err := s.visits.ListVisitViews(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list visits: %w", err)
	}
	if err := writeBackup(w, views); err != nil {
		return 0, fmt.Errorf("failed to write visits backup: %w", err)
	}

	s.log.Info("Visits exported", map[string]interface{}{
		"visits": len(views),
	})
	return len(views), nil
}

func (s *visitService) ImportVisits(ctx context.Context, r io.Reader) (*BackupReport, error) {
	visits, restore, err := readBackup(r)
	if err != nil {
		s.log.Warn("Visits backup rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	report := &BackupReport{Rows: len(visits), Restore: restore}
	if len(visits) == 0 {
		return report, nil
	}

	inserted, err := s.visits.InsertVisits(ctx, visits)
	if err != nil {
		s.log.Error("Failed to import visits", err, map[string]interface{}{
			"rows": len(visits),
		})
		return nil, fmt.Errorf("failed to import visits: %w", err)
	}
	report.Inserted = inserted

	s.log.Info("Visits imported", map[string]interface{}{
		"rows":     report.Rows,
		"inserted": inserted,
		"restore":  restore,
	})

	return report, nil
}

func (s *visitService) requireTower(ctx context.Context, towerID int64) error {
	tower, err := s.towers.GetTower(ctx, towerID)
	if err != nil {
		return fmt.Errorf("failed to query tower: %w", err)
	}
	if tower == nil {
		return fmt.Errorf("%w: %d", ErrTowerNotFound, towerID)
	}
	return nil
}

// visitFromInput fills in the default date: today on the service clock.
func (s *visitService) visitFromInput(in VisitInput) models.Visit {
	var date time.Time
	if in.Date != nil {
		date = *in.Date
	} else {
		date = s.clock.Now()
	}
	y, m, d := date.Date()

	return models.Visit{
		TowerID: in.TowerID,
		Date:    time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Notes:   in.Notes,
		Peal:    in.Peal,
		Quarter: in.Quarter,
	}
}
