package models

import (
	"encoding/json"
	"math"
	"testing"
)

// TestPointJSON tests GeoJSON marshaling/unmarshaling
func TestPointJSON(t *testing.T) {
	original := Point{Lat: 51.03862, Lng: -1.57589}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var geom map[string]interface{}
	if err := json.Unmarshal(data, &geom); err != nil {
		t.Fatalf("Marshal did not return valid JSON: %v", err)
	}
	if geom["type"] != "Point" {
		t.Errorf("expected type=Point, got %v", geom["type"])
	}
	coords, ok := geom["coordinates"].([]interface{})
	if !ok || len(coords) != 2 {
		t.Fatalf("expected two coordinates, got %v", geom["coordinates"])
	}
	if coords[0] != original.Lng {
		t.Errorf("expected longitude first, got %v", coords[0])
	}

	var decoded Point
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

// TestPointUnmarshalWrongType tests that non-Point geometries are rejected
func TestPointUnmarshalWrongType(t *testing.T) {
	var p Point
	err := json.Unmarshal([]byte(`{"type":"Polygon","coordinates":[0,0]}`), &p)
	if err == nil {
		t.Error("expected error for Polygon input")
	}
}

// TestDistanceMeters tests great-circle distances against known values
func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{
			name: "same point",
			a:    Point{Lat: 51.5, Lng: -0.1},
			b:    Point{Lat: 51.5, Lng: -0.1},
			want: 0,
		},
		{
			name:      "one degree of latitude",
			a:         Point{Lat: 50, Lng: 0},
			b:         Point{Lat: 51, Lng: 0},
			want:      111195,
			tolerance: 50,
		},
		{
			name:      "london to oxford",
			a:         Point{Lat: 51.5074, Lng: -0.1278},
			b:         Point{Lat: 51.7520, Lng: -1.2577},
			want:      82000,
			tolerance: 1500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f (+/- %f)", got, tt.want, tt.tolerance)
			}
			if back := DistanceMeters(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("distance not symmetric: %f vs %f", got, back)
			}
		})
	}
}
