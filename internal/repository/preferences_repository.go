package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/bellfinder/internal/database"
	"github.com/stwalsh4118/bellfinder/internal/models"
)

// PreferencesRepository reads and writes the single preferences row.
type PreferencesRepository interface {
	// GetPreferences returns the defaults if the row is missing.
	GetPreferences(ctx context.Context) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, prefs models.Preferences) error

	// GetDataVersion returns the version of the Dove file last loaded,
	// or "" if none was recorded.
	GetDataVersion(ctx context.Context) (string, error)
	SetDataVersion(ctx context.Context, version string) error
}

type preferencesRepository struct {
	db *database.Database
}

// NewPreferencesRepository creates a new instance of PreferencesRepository.
func NewPreferencesRepository(db *database.Database) PreferencesRepository {
	return &preferencesRepository{db: db}
}

func (r *preferencesRepository) GetPreferences(ctx context.Context) (models.Preferences, error) {
	var p models.Preferences
	err := r.db.Pool.QueryRow(ctx,
		`SELECT bells, unringable FROM preferences WHERE idx = 1`,
	).Scan(&p.Bells, &p.Unringable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultPreferences(), nil
		}
		return models.Preferences{}, fmt.Errorf("failed to query preferences: %w", err)
	}
	return p, nil
}

func (r *preferencesRepository) UpdatePreferences(ctx context.Context, p models.Preferences) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO preferences (idx, bells, unringable) VALUES (1, $1, $2)
		ON CONFLICT (idx) DO UPDATE SET bells = EXCLUDED.bells, unringable = EXCLUDED.unringable`,
		p.Bells, p.Unringable,
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	return nil
}

func (r *preferencesRepository) GetDataVersion(ctx context.Context) (string, error) {
	var version string
	err := r.db.Pool.QueryRow(ctx, `SELECT data_version FROM preferences WHERE idx = 1`).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query data version: %w", err)
	}
	return version, nil
}

func (r *preferencesRepository) SetDataVersion(ctx context.Context, version string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO preferences (idx, data_version) VALUES (1, $1)
		ON CONFLICT (idx) DO UPDATE SET data_version = EXCLUDED.data_version`,
		version,
	)
	if err != nil {
		return fmt.Errorf("failed to set data version: %w", err)
	}
	return nil
}
