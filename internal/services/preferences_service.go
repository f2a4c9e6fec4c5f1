package services

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/repository"
)

// PreferencesService reads and updates the display preferences.
type PreferencesService interface {
	GetPreferences(ctx context.Context) (models.Preferences, error)

	// UpdatePreferences returns ErrInvalidPreferences for an unknown
	// character in the bells filter.
	UpdatePreferences(ctx context.Context, prefs models.Preferences) (models.Preferences, error)
}

type preferencesService struct {
	repo repository.PreferencesRepository
	log  *logger.Logger
}

// NewPreferencesService creates a new instance of PreferencesService.
func NewPreferencesService(repo repository.PreferencesRepository, log *logger.Logger) PreferencesService {
	return &preferencesService{repo: repo, log: log}
}

func (s *preferencesService) GetPreferences(ctx context.Context) (models.Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx)
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}
	return prefs, nil
}

func (s *preferencesService) UpdatePreferences(ctx context.Context, prefs models.Preferences) (models.Preferences, error) {
	if err := models.ValidateBellsFilter(prefs.Bells); err != nil {
		return models.Preferences{}, fmt.Errorf("%w: %v", ErrInvalidPreferences, err)
	}

	if err := s.repo.UpdatePreferences(ctx, prefs); err != nil {
		s.log.Error("Failed to update preferences", err, nil)
		return models.Preferences{}, fmt.Errorf("failed to update preferences: %w", err)
	}

	s.log.Info("Preferences updated", map[string]interface{}{
		"bells":      prefs.Bells,
		"unringable": prefs.Unringable,
	})

	return prefs, nil
}
