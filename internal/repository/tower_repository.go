package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stwalsh4118/bellfinder/internal/database"
	"github.com/stwalsh4118/bellfinder/internal/models"
)

// BoundingBox limits a tower query to a latitude/longitude rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// TowerRepository defines data access for the tower directory.
type TowerRepository interface {
	// InsertTowers adds towers, ignoring ids already present.
	// It returns the number of rows inserted.
	InsertTowers(ctx context.Context, towers []models.Tower) (int64, error)

	// ReplaceTowers deletes the whole directory and inserts towers in one
	// transaction. On error the previous directory is kept.
	ReplaceTowers(ctx context.Context, towers []models.Tower) (int64, error)

	// ListTowers returns every tower ordered by place.
	ListTowers(ctx context.Context) ([]models.Tower, error)

	// ListTowersInBox returns towers inside the box, ordered by place.
	ListTowersInBox(ctx context.Context, box BoundingBox) ([]models.Tower, error)

	// GetTower returns nil, nil when the tower does not exist.
	GetTower(ctx context.Context, towerID int64) (*models.Tower, error)

	CountTowers(ctx context.Context) (int64, error)

	// ListVisitedTowerIDs returns the distinct ids of visited towers.
	ListVisitedTowerIDs(ctx context.Context) ([]int64, error)
}

type towerRepository struct {
	db *database.Database
}

// NewTowerRepository creates a new instance of TowerRepository.
func NewTowerRepository(db *database.Database) TowerRepository {
	return &towerRepository{db: db}
}

const towerColumns = `tower_id, place, place_qualifier, county, dedication, bells, weight,
	unringable, practice_night, practice_extra, latitude, longitude`

const insertTowerSQL = `INSERT INTO towers (` + towerColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (tower_id) DO NOTHING`

func queueTowers(towers []models.Tower) *pgx.Batch {
	b := &pgx.Batch{}
	for _, t := range towers {
		b.Queue(insertTowerSQL,
			t.TowerID, t.Place, t.PlaceQualifier, t.County, t.Dedication, t.Bells, t.Weight,
			t.Unringable, t.PracticeNight, t.PracticeExtra, t.Latitude, t.Longitude,
		)
	}
	return b
}

func (r *towerRepository) InsertTowers(ctx context.Context, towers []models.Tower) (int64, error) {
	n, err := sendBatch(ctx, r.db.Pool, queueTowers(towers))
	if err != nil {
		return n, fmt.Errorf("failed to insert towers: %w", err)
	}
	return n, nil
}

func (r *towerRepository) ReplaceTowers(ctx context.Context, towers []models.Tower) (int64, error) {
	var inserted int64
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM towers`); err != nil {
			return fmt.Errorf("failed to clear towers: %w", err)
		}
		n, err := sendBatch(ctx, tx, queueTowers(towers))
		if err != nil {
			return fmt.Errorf("failed to insert towers: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *towerRepository) ListTowers(ctx context.Context) ([]models.Tower, error) {
	query := `SELECT ` + towerColumns + ` FROM towers ORDER BY place, tower_id`
	return r.queryTowers(ctx, query)
}

func (r *towerRepository) ListTowersInBox(ctx context.Context, box BoundingBox) ([]models.Tower, error) {
	query := `SELECT ` + towerColumns + ` FROM towers
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		ORDER BY place, tower_id`
	return r.queryTowers(ctx, query, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
}

func (r *towerRepository) queryTowers(ctx context.Context, query string, args ...any) ([]models.Tower, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query towers: %w", err)
	}
	defer rows.Close()

	towers := []models.Tower{}
	for rows.Next() {
		t, err := scanTower(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tower row: %w", err)
		}
		towers = append(towers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tower rows: %w", err)
	}
	return towers, nil
}

func (r *towerRepository) GetTower(ctx context.Context, towerID int64) (*models.Tower, error) {
	query := `SELECT ` + towerColumns + ` FROM towers WHERE tower_id = $1`

	t, err := scanTower(r.db.Pool.QueryRow(ctx, query, towerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query tower %d: %w", towerID, err)
	}
	return &t, nil
}

func (r *towerRepository) CountTowers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM towers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count towers: %w", err)
	}
	return n, nil
}

func (r *towerRepository) ListVisitedTowerIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT tower_id FROM visits ORDER BY tower_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query visited towers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan visited towers: %w", err)
	}
	return ids, nil
}

func scanTower(row pgx.Row) (models.Tower, error) {
	var t models.Tower
	err := row.Scan(
		&t.TowerID,
		&t.Place,
		&t.PlaceQualifier,
		&t.County,
		&t.Dedication,
		&t.Bells,
		&t.Weight,
		&t.Unringable,
		&t.PracticeNight,
		&t.PracticeExtra,
		&t.Latitude,
		&t.Longitude,
	)
	return t, err
}
