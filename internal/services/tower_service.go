package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"slices"

	"github.com/stwalsh4118/bellfinder/internal/config"
	"github.com/stwalsh4118/bellfinder/internal/dove"
	"github.com/stwalsh4118/bellfinder/internal/logger"
	"github.com/stwalsh4118/bellfinder/internal/metrics"
	"github.com/stwalsh4118/bellfinder/internal/models"
	"github.com/stwalsh4118/bellfinder/internal/repository"
)

// TowerFilter selects towers for SearchTowers. Zero values match everything.
// Query matches the start of any word of the place name, ignoring case.
// County matches the county abbreviation or its full name. Visited keeps
// only visited (true) or unvisited (false) towers. ApplyPreferences hides
// towers the stored preferences exclude.
type TowerFilter struct {
	Query            string
	County           string
	Visited          *bool
	ApplyPreferences bool
	Limit            int
}

// NearbyQuery selects towers around a point. Zero radius and limit use
// the configured defaults.
type NearbyQuery struct {
	Lat              float64
	Lng              float64
	RadiusMeters     float64
	Limit            int
	ApplyPreferences bool
}

// TowerSummary is a tower as listed in search results. Position repeats
// the coordinates as a GeoJSON point for map clients.
type TowerSummary struct {
	models.Tower
	DisplayName string       `json:"displayName"`
	Position    models.Point `json:"position"`
	Visited     bool         `json:"visited"`
}

// TowerDistance is a nearby tower with its distance from the query point.
type TowerDistance struct {
	TowerSummary
	DistanceMeters float64 `json:"distanceMeters"`
	DistanceMiles  float64 `json:"distanceMiles"`
}

// TowerDetails is the full view of one tower.
type TowerDetails struct {
	models.Tower
	DisplayName string  `json:"displayName"`
	TenorWeight string  `json:"tenorWeight"`
	RoundedCwt  int     `json:"roundedCwt"`
	CountyName  string  `json:"countyName,omitempty"`
	DoveURL     string  `json:"doveUrl"`
	VisitCount  int     `json:"visitCount"`
	LastVisit   *string `json:"lastVisit,omitempty"`
}

// ImportReport summarises a Dove import.
type ImportReport struct {
	Rows     int             `json:"rows"`
	Parsed   int             `json:"parsed"`
	Inserted int64           `json:"inserted"`
	Skipped  []dove.RowError `json:"skipped"`
	Version  string          `json:"version,omitempty"`
}

// Stats counts the directory and the visited towers.
type Stats struct {
	Towers        int64 `json:"towers"`
	VisitedTowers int64 `json:"visitedTowers"`
}

// TowerService defines tower directory operations.
type TowerService interface {
	// ImportDove parses a Dove feed and replaces the directory with it.
	// A rejected feed returns ErrFeedRejected wrapping the *dove.FeedError
	// and leaves the stored directory untouched.
	ImportDove(ctx context.Context, r io.Reader) (*ImportReport, error)

	// SeedDove loads the Dove file at path when the stored data version
	// differs from version, or, with an empty version, when the directory
	// is empty. It returns nil, nil when nothing needed loading.
	SeedDove(ctx context.Context, path, version string) (*ImportReport, error)

	SearchTowers(ctx context.Context, filter TowerFilter) ([]TowerSummary, error)

	// NearbyTowers returns towers within the radius, closest first.
	NearbyTowers(ctx context.Context, q NearbyQuery) ([]TowerDistance, error)

	// GetTower returns ErrTowerNotFound for an unknown id.
	GetTower(ctx context.Context, towerID int64) (*TowerDetails, error)

	Stats(ctx context.Context) (*Stats, error)
}

type towerService struct {
	towers  repository.TowerRepository
	visits  repository.VisitRepository
	prefs   repository.PreferencesRepository
	metrics *metrics.Metrics
	log     *logger.Logger
	nearby  config.NearbyConfig
}

// NewTowerService creates a new instance of TowerService.
func NewTowerService(
	towers repository.TowerRepository,
	visits repository.VisitRepository,
	prefs repository.PreferencesRepository,
	m *metrics.Metrics,
	log *logger.Logger,
	nearby config.NearbyConfig,
) TowerService {
	return &towerService{
		towers:  towers,
		visits:  visits,
		prefs:   prefs,
		metrics: m,
		log:     log,
		nearby:  nearby,
	}
}

func (s *towerService) ImportDove(ctx context.Context, r io.Reader) (*ImportReport, error) {
	result, err := dove.ParseReader(r, s.log)
	if err != nil {
		var feedErr *dove.FeedError
		if errors.As(err, &feedErr) {
			s.metrics.ObserveFeed(0, 0, true)
			s.log.Warn("Dove feed rejected", map[string]interface{}{
				"error": feedErr.Error(),
			})
			return nil, fmt.Errorf("%w: %w", ErrFeedRejected, feedErr)
		}
		return nil, err
	}

	s.metrics.ObserveFeed(len(result.Towers), len(result.Skipped), false)

	report := &ImportReport{
		Rows:    result.Rows,
		Parsed:  len(result.Towers),
		Skipped: result.Skipped,
	}
	if report.Skipped == nil {
		report.Skipped = []dove.RowError{}
	}

	if len(result.Towers) == 0 {
		s.log.Warn("Dove feed has no usable towers, keeping directory", map[string]interface{}{
			"rows":    result.Rows,
			"skipped": len(result.Skipped),
		})
		return report, ErrEmptyFeed
	}

	inserted, err := s.towers.ReplaceTowers(ctx, result.Towers)
	if err != nil {
		s.log.Error("Failed to replace tower directory", err, map[string]interface{}{
			"towers": len(result.Towers),
		})
		return nil, fmt.Errorf("failed to store towers: %w", err)
	}
	report.Inserted = inserted
	s.metrics.TowersLoaded.Set(float64(inserted))

	s.log.Info("Dove feed imported", map[string]interface{}{
		"rows":     result.Rows,
		"parsed":   len(result.Towers),
		"skipped":  len(result.Skipped),
		"inserted": inserted,
	})

	return report, nil
}

func (s *towerService) SeedDove(ctx context.Context, path, version string) (*ImportReport, error) {
	if version != "" {
		stored, err := s.prefs.GetDataVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read data version: %w", err)
		}
		if stored == version {
			s.log.Debug("Tower directory is current", map[string]interface{}{
				"version": version,
			})
			return nil, nil
		}
	} else {
		count, err := s.towers.CountTowers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count towers: %w", err)
		}
		if count > 0 {
			s.log.Debug("Tower directory already loaded", map[string]interface{}{
				"towers": count,
			})
			return nil, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dove file: %w", err)
	}
	defer f.Close()

	s.log.Info("Loading Dove file", map[string]interface{}{
		"path":    path,
		"version": version,
	})

	report, err := s.ImportDove(ctx, f)
	if err != nil {
		return report, err
	}

	if version != "" {
		if err := s.prefs.SetDataVersion(ctx, version); err != nil {
			return report, fmt.Errorf("failed to record data version: %w", err)
		}
	}
	report.Version = version

	return report, nil
}

// wordStartPattern builds the case-insensitive word-start matcher for a
// search query. An empty query yields nil.
func wordStartPattern(query string) *regexp.Regexp {
	if query == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(query))
}

func (s *towerService) SearchTowers(ctx context.Context, filter TowerFilter) ([]TowerSummary, error) {
	towers, err := s.towers.ListTowers(ctx)
	if err != nil {
		s.log.Error("Failed to list towers", err, nil)
		return nil, fmt.Errorf("failed to list towers: %w", err)
	}

	visited, err := s.visitedSet(ctx)
	if err != nil {
		return nil, err
	}

	prefs, err := s.preferencesFor(ctx, filter.ApplyPreferences)
	if err != nil {
		return nil, err
	}

	pattern := wordStartPattern(filter.Query)

	results := []TowerSummary{}
	for _, t := range towers {
		if pattern != nil && !pattern.MatchString(t.Place) {
			continue
		}
		if filter.County != "" && (t.County == nil || !models.MatchesCounty(*t.County, filter.County)) {
			continue
		}
		isVisited := visited[t.TowerID]
		if filter.Visited != nil && *filter.Visited != isVisited {
			continue
		}
		if prefs != nil && !prefs.Shows(t) {
			continue
		}
		results = append(results, summarize(t, isVisited))
		if filter.Limit > 0 && len(results) == filter.Limit {
			break
		}
	}

	s.log.Debug("Tower search", map[string]interface{}{
		"query":   filter.Query,
		"county":  filter.County,
		"results": len(results),
	})

	return results, nil
}

func (s *towerService) NearbyTowers(ctx context.Context, q NearbyQuery) ([]TowerDistance, error) {
	if err := validateCoordinates(q.Lat, q.Lng); err != nil {
		s.log.Warn("Invalid coordinates provided", map[string]interface{}{
			"lat": q.Lat,
			"lng": q.Lng,
		})
		return nil, err
	}

	radius := q.RadiusMeters
	if radius == 0 {
		radius = s.nearby.RadiusMeters
	}
	if math.IsNaN(radius) || radius <= 0 || radius > MaxRadiusMeters {
		return nil, fmt.Errorf("%w: radius must be between 0 and %g meters, got %g",
			ErrInvalidRadius, MaxRadiusMeters, radius)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = s.nearby.Limit
	}

	origin := models.Point{Lat: q.Lat, Lng: q.Lng}

	var towers []models.Tower
	var err error
	if box, ok := boundingBox(origin, radius); ok {
		towers, err = s.towers.ListTowersInBox(ctx, box)
	} else {
		towers, err = s.towers.ListTowers(ctx)
	}
	if err != nil {
		s.log.Error("Failed to query nearby towers", err, map[string]interface{}{
			"lat":    q.Lat,
			"lng":    q.Lng,
			"radius": radius,
		})
		return nil, fmt.Errorf("failed to query nearby towers: %w", err)
	}

	visited, err := s.visitedSet(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.preferencesFor(ctx, q.ApplyPreferences)
	if err != nil {
		return nil, err
	}

	results := []TowerDistance{}
	for _, t := range towers {
		d := models.DistanceMeters(origin, t.Position())
		if d > radius {
			continue
		}
		if prefs != nil && !prefs.Shows(t) {
			continue
		}
		results = append(results, TowerDistance{
			TowerSummary:   summarize(t, visited[t.TowerID]),
			DistanceMeters: d,
			DistanceMiles:  d / models.MetersPerMile,
		})
	}

	slices.SortStableFunc(results, func(a, b TowerDistance) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.log.Info("Nearby towers found", map[string]interface{}{
		"lat":    q.Lat,
		"lng":    q.Lng,
		"radius": radius,
		"count":  len(results),
	})

	return results, nil
}

// boundingBox returns a latitude/longitude box that contains every point
// within radius of origin. It reports false near the poles or the
// antimeridian, where callers should scan everything.
func boundingBox(origin models.Point, radius float64) (repository.BoundingBox, bool) {
	latDelta := radius / models.EarthRadiusMeters * 180 / math.Pi
	if math.Abs(origin.Lat)+latDelta >= 89 {
		return repository.BoundingBox{}, false
	}
	lngDelta := latDelta / math.Cos(origin.Lat*math.Pi/180)
	box := repository.BoundingBox{
		MinLat: origin.Lat - latDelta,
		MaxLat: origin.Lat + latDelta,
		MinLng: origin.Lng - lngDelta,
		MaxLng: origin.Lng + lngDelta,
	}
	if box.MinLng < MinLongitude || box.MaxLng > MaxLongitude {
		return repository.BoundingBox{}, false
	}
	return box, true
}

func (s *towerService) GetTower(ctx context.Context, towerID int64) (*TowerDetails, error) {
	tower, err := s.towers.GetTower(ctx, towerID)
	if err != nil {
		s.log.Error("Failed to query tower", err, map[string]interface{}{
			"tower_id": towerID,
		})
		return nil, fmt.Errorf("failed to query tower: %w", err)
	}
	if tower == nil {
		return nil, ErrTowerNotFound
	}

	visits, err := s.visits.ListTowerVisits(ctx, towerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tower visits: %w", err)
	}

	details := &TowerDetails{
		Tower:       *tower,
		DisplayName: tower.DisplayName(),
		TenorWeight: tower.TenorWeight(),
		RoundedCwt:  tower.RoundedCwt(),
		CountyName:  tower.CountyName(),
		DoveURL:     tower.DoveURL(),
		VisitCount:  len(visits),
	}
	if len(visits) > 0 {
		last := visits[0].Date.Format(models.DateLayout)
		details.LastVisit = &last
	}

	return details, nil
}

func (s *towerService) Stats(ctx context.Context) (*Stats, error) {
	towers, err := s.towers.CountTowers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count towers: %w", err)
	}
	visited, err := s.visits.CountVisitedTowers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count visited towers: %w", err)
	}
	return &Stats{Towers: towers, VisitedTowers: visited}, nil
}

func (s *towerService) visitedSet(ctx context.Context) (map[int64]bool, error) {
	ids, err := s.towers.ListVisitedTowerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list visited towers: %w", err)
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// preferencesFor loads the stored preferences when they should be applied.
func (s *towerService) preferencesFor(ctx context.Context, apply bool) (*models.Preferences, error) {
	if !apply {
		return nil, nil
	}
	prefs, err := s.prefs.GetPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	return &prefs, nil
}

func summarize(t models.Tower, visited bool) TowerSummary {
	return TowerSummary{Tower: t, DisplayName: t.DisplayName(), Position: t.Position(), Visited: visited}
}
