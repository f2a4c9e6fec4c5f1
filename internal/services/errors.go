package services

import (
	"errors"
	"fmt"
	"math"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// MaxRadiusMeters bounds nearby queries.
const MaxRadiusMeters = 200000.0

// Service-level errors
var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidRadius      = errors.New("invalid radius")
	ErrInvalidVisit       = errors.New("invalid visit")
	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrTowerNotFound      = errors.New("tower not found")
	ErrVisitNotFound      = errors.New("visit not found")
	ErrFeedRejected       = errors.New("dove feed rejected")
	ErrEmptyFeed          = errors.New("dove feed contains no usable towers")
	ErrInvalidBackup      = errors.New("invalid visits backup")
)

// validateCoordinates checks a latitude/longitude pair.
func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return fmt.Errorf("%w: latitude must be between %g and %g, got %g",
			ErrInvalidCoordinates, MinLatitude, MaxLatitude, lat)
	}
	if math.IsNaN(lng) || lng < MinLongitude || lng > MaxLongitude {
		return fmt.Errorf("%w: longitude must be between %g and %g, got %g",
			ErrInvalidCoordinates, MinLongitude, MaxLongitude, lng)
	}
	return nil
}
