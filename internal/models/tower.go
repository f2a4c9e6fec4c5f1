package models

import (
	"fmt"
	"math"
)

// Pounds per hundredweight and per quarter, used for tenor weights.
const (
	poundsPerCwt     = 112
	poundsPerQuarter = 28
)

// DoveDetailURL is the Dove web page for a single tower, keyed by TowerBase.
const DoveDetailURL = "https://dove.cccbr.org.uk/detail.php?TowerBase=%d"

// Tower represents one entry of the Dove bell tower directory.
// Nullable fields use pointers to distinguish between an empty Dove field and a value.
type Tower struct {
	PlaceQualifier *string `json:"placeQualifier,omitempty"`
	County         *string `json:"county,omitempty"`
	Dedication     *string `json:"dedication,omitempty"`
	PracticeNight  *string `json:"practiceNight,omitempty"`
	PracticeExtra  *string `json:"practiceExtra,omitempty"`
	Place          string  `json:"place"`
	TowerID        int64   `json:"towerId"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Bells          int     `json:"bells"`
	Weight         int     `json:"weight"`
	Unringable     bool    `json:"unringable"`
}

// TenorWeight formats the tenor weight in the traditional cwt-qtr-lb notation.
func (t Tower) TenorWeight() string {
	cwt := t.Weight / poundsPerCwt
	qtr := (t.Weight - cwt*poundsPerCwt) / poundsPerQuarter
	lbs := t.Weight % poundsPerQuarter
	return fmt.Sprintf("%d-%d-%d", cwt, qtr, lbs)
}

// RoundedCwt returns the tenor weight rounded to the nearest hundredweight.
func (t Tower) RoundedCwt() int {
	return int(math.Round(float64(t.Weight) / poundsPerCwt))
}

// DoveURL returns the Dove detail page for the tower.
func (t Tower) DoveURL() string {
	return fmt.Sprintf(DoveDetailURL, t.TowerID)
}

// DisplayName is the place followed by its qualifier, or by the dedication
// when the tower has no qualifier.
func (t Tower) DisplayName() string {
	switch {
	case t.PlaceQualifier != nil:
		return t.Place + ", " + *t.PlaceQualifier
	case t.Dedication != nil:
		return t.Place + ", " + *t.Dedication
	default:
		return t.Place
	}
}

// CountyName returns the expanded county name, or "" when the tower has no county.
func (t Tower) CountyName() string {
	if t.County == nil {
		return ""
	}
	return LookupCounty(*t.County)
}
