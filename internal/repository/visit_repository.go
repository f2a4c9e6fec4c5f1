package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/bellfinder/internal/database"
	"github.com/stwalsh4118/bellfinder/internal/models"
)

// VisitRepository defines data access for recorded visits.
type VisitRepository interface {
	// GetVisit returns nil, nil when the visit does not exist.
	GetVisit(ctx context.Context, visitID int64) (*models.Visit, error)

	// ListVisitViews returns every visit joined with its tower, newest first.
	ListVisitViews(ctx context.Context) ([]models.VisitView, error)

	// ListTowerVisits returns the visits to one tower, newest first.
	ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error)

	// InsertVisit stores a new visit and returns its id.
	InsertVisit(ctx context.Context, visit models.Visit) (int64, error)

	// InsertVisits stores visits in one transaction. A visit with a non-zero
	// id keeps it and is ignored if the id already exists; a zero id gets a
	// new one. It returns the number of rows inserted.
	InsertVisits(ctx context.Context, visits []models.Visit) (int64, error)

	// UpdateVisit reports false when the visit does not exist.
	UpdateVisit(ctx context.Context, visit models.Visit) (bool, error)

	// DeleteVisit reports false when the visit does not exist.
	DeleteVisit(ctx context.Context, visitID int64) (bool, error)

	// CountVisitedTowers returns the number of distinct towers visited.
	CountVisitedTowers(ctx context.Context) (int64, error)
}

type visitRepository struct {
	db *database.Database
}

// NewVisitRepository creates a new instance of VisitRepository.
func NewVisitRepository(db *database.Database) VisitRepository {
	return &visitRepository{db: db}
}

const visitColumns = `visit_id, tower_id, date, notes, peal, quarter`

func (r *visitRepository) GetVisit(ctx context.Context, visitID int64) (*models.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE visit_id = $1`

	v, err := scanVisit(r.db.Pool.QueryRow(ctx, query, visitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query visit %d: %w", visitID, err)
	}
	return &v, nil
}

func (r *visitRepository) ListVisitViews(ctx context.Context) ([]models.VisitView, error) {
	query := `SELECT ` + visitColumns + `, place, place_qualifier, dedication, county, bells
		FROM visit_views
		ORDER BY date DESC, visit_id DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	views := []models.VisitView{}
	for rows.Next() {
		var v models.VisitView
		err := rows.Scan(
			&v.VisitID,
			&v.TowerID,
			&v.Date,
			&v.Notes,
			&v.Peal,
			&v.Quarter,
			&v.Place,
			&v.PlaceQualifier,
			&v.Dedication,
			&v.County,
			&v.Bells,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit rows: %w", err)
	}
	return views, nil
}

func (r *visitRepository) ListTowerVisits(ctx context.Context, towerID int64) ([]models.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits
		WHERE tower_id = $1
		ORDER BY date DESC, visit_id DESC`

	rows, err := r.db.Pool.Query(ctx, query, towerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits to tower %d: %w", towerID, err)
	}
	defer rows.Close()

	visits := []models.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit row: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visit rows: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) InsertVisit(ctx context.Context, v models.Visit) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO visits (tower_id, date, notes, peal, quarter)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING visit_id`,
		v.TowerID, v.Date, v.Notes, v.Peal, v.Quarter,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visit: %w", err)
	}
	return id, nil
}

func (r *visitRepository) InsertVisits(ctx context.Context, visits []models.Visit) (int64, error) {
	b := &pgx.Batch{}
	restored := false
	for _, v := range visits {
		if v.VisitID == 0 {
			b.Queue(`INSERT INTO visits (tower_id, date, notes, peal, quarter)
				VALUES ($1, $2, $3, $4, $5)`,
				v.TowerID, v.Date, v.Notes, v.Peal, v.Quarter)
			continue
		}
		restored = true
		b.Queue(`INSERT INTO visits (`+visitColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (visit_id) DO NOTHING`,
			v.VisitID, v.TowerID, v.Date, v.Notes, v.Peal, v.Quarter)
	}

	var inserted int64
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		n, err := sendBatch(ctx, tx, b)
		if err != nil {
			return fmt.Errorf("failed to insert visits: %w", err)
		}
		inserted = n
		if !restored {
			return nil
		}
		// Explicit ids bypass the sequence; move it past them.
		_, err = tx.Exec(ctx, `SELECT setval(
			pg_get_serial_sequence('visits', 'visit_id'),
			COALESCE((SELECT MAX(visit_id) FROM visits), 0) + 1,
			false)`)
		if err != nil {
			return fmt.Errorf("failed to advance visit id sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *visitRepository) UpdateVisit(ctx context.Context, v models.Visit) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE visits
		SET tower_id = $2, date = $3, notes = $4, peal = $5, quarter = $6
		WHERE visit_id = $1`,
		v.VisitID, v.TowerID, v.Date, v.Notes, v.Peal, v.Quarter,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update visit %d: %w", v.VisitID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *visitRepository) DeleteVisit(ctx context.Context, visitID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM visits WHERE visit_id = $1`, visitID)
	if err != nil {
		return false, fmt.Errorf("failed to delete visit %d: %w", visitID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *visitRepository) CountVisitedTowers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(DISTINCT tower_id) FROM visits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count visited towers: %w", err)
	}
	return n, nil
}

func scanVisit(row pgx.Row) (models.Visit, error) {
	var v models.Visit
	err := row.Scan(&v.VisitID, &v.TowerID, &v.Date, &v.Notes, &v.Peal, &v.Quarter)
	return v, err
}
