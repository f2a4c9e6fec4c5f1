package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for visit dates.
const DateLayout = "2006-01-02"

// Visit is a single recorded visit to a tower.
type Visit struct {
	Date    time.Time `json:"date"`
	Notes   *string   `json:"notes,omitempty"`
	VisitID int64     `json:"visitId"`
	TowerID int64     `json:"towerId"`
	Peal    bool      `json:"peal"`
	Quarter bool      `json:"quarter"`
}

// visitFields is Visit without its JSON methods.
type visitFields Visit

// MarshalJSON writes the date as YYYY-MM-DD, the form the visit
// endpoints accept.
func (v Visit) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		visitFields
		Date string `json:"date"`
	}{visitFields(v), v.Date.Format(DateLayout)})
}

// UnmarshalJSON reads a YYYY-MM-DD date. A missing date leaves it zero.
func (v *Visit) UnmarshalJSON(data []byte) error {
	aux := struct {
		*visitFields
		Date string `json:"date"`
	}{visitFields: (*visitFields)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	date, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return fmt.Errorf("invalid visit date %q: %w", aux.Date, err)
	}
	v.Date = date
	return nil
}

// VisitView is a visit joined with the details of its tower.
// It matches the visit_views database view.
type VisitView struct {
	Visit
	PlaceQualifier *string `json:"placeQualifier,omitempty"`
	Dedication     *string `json:"dedication,omitempty"`
	County         *string `json:"county,omitempty"`
	Place          string  `json:"place"`
	Bells          int     `json:"bells"`
}

// visitTower holds the tower columns of a VisitView.
type visitTower struct {
	PlaceQualifier *string `json:"placeQualifier,omitempty"`
	Dedication     *string `json:"dedication,omitempty"`
	County         *string `json:"county,omitempty"`
	Place          string  `json:"place"`
	Bells          int     `json:"bells"`
}

func (v VisitView) tower() visitTower {
	return visitTower{
		PlaceQualifier: v.PlaceQualifier,
		Dedication:     v.Dedication,
		County:         v.County,
		Place:          v.Place,
		Bells:          v.Bells,
	}
}

// MarshalJSON flattens the visit and tower fields into one object. The
// promoted Visit.MarshalJSON would drop the tower fields.
func (v VisitView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		visitFields
		visitTower
		Date string `json:"date"`
	}{visitFields(v.Visit), v.tower(), v.Date.Format(DateLayout)})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *VisitView) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &v.Visit); err != nil {
		return err
	}
	var t visitTower
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	v.PlaceQualifier = t.PlaceQualifier
	v.Dedication = t.Dedication
	v.County = t.County
	v.Place = t.Place
	v.Bells = t.Bells
	return nil
}

// DisplayPlace mirrors Tower.DisplayName for a joined visit row.
func (v VisitView) DisplayPlace() string {
	t := Tower{Place: v.Place, PlaceQualifier: v.PlaceQualifier, Dedication: v.Dedication}
	return t.DisplayName()
}
