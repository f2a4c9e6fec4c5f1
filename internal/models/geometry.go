package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// MetersPerMile converts distances for display.
const MetersPerMile = 1609.344

// Point represents a WGS84 position.
// It marshals to a GeoJSON Point: {"type":"Point","coordinates":[lon,lat]}.
type Point struct {
	Lat float64
	Lng float64
}

// MarshalJSON implements json.Marshaler for API responses.
// GeoJSON uses (longitude, latitude) order.
func (p Point) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: [2]float64{p.Lng, p.Lat},
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for GeoJSON Point input.
func (p *Point) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal point: %w", err)
	}
	if geom.Type != "" && geom.Type != "Point" {
		return fmt.Errorf("expected Point type, got %s", geom.Type)
	}
	p.Lng = geom.Coordinates[0]
	p.Lat = geom.Coordinates[1]
	return nil
}

// Position returns the tower location as a Point.
func (t Tower) Position() Point {
	return Point{Lat: t.Latitude, Lng: t.Longitude}
}

// DistanceMeters returns the great-circle (haversine) distance between two points.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
