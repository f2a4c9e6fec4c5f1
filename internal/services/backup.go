package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/bellfinder/internal/models"
)

// Visits backup columns. Place is informational and ignored on import.
const (
	colVisitID   = "VisitId"
	colTowerBase = "TowerBase"
	colDate      = "Date"
	colNotes     = "Notes"
	colPeal      = "Peal"
	colQuarter   = "Quarter"
	colPlace     = "Place"
)

var backupHeader = []string{colVisitID, colTowerBase, colDate, colNotes, colPeal, colQuarter, colPlace}

// backupDateLayout accepts dates with or without leading zeros.
const backupDateLayout = "2006-1-2"

// BackupError reports the row of a visits backup that could not be read.
// Row 0 means the header.
type BackupError struct {
	Row    int
	Column string
	Err    error
}

func (e *BackupError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%v: row %d: %v", ErrInvalidBackup, e.Row, e.Err)
	}
	return fmt.Sprintf("%v: row %d: %s: %v", ErrInvalidBackup, e.Row, e.Column, e.Err)
}

func (e *BackupError) Unwrap() []error {
	return []error{ErrInvalidBackup, e.Err}
}

// writeBackup writes visits as CSV with backupHeader.
func writeBackup(w io.Writer, views []models.VisitView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(backupHeader); err != nil {
		return err
	}
	for _, v := range views {
		notes := ""
		if v.Notes != nil {
			notes = *v.Notes
		}
		record := []string{
			strconv.FormatInt(v.VisitID, 10),
			strconv.FormatInt(v.TowerID, 10),
			v.Date.Format(models.DateLayout),
			notes,
			flag(v.Peal),
			flag(v.Quarter),
			v.DisplayPlace(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return ""
}

// readBackup decodes a visits backup. restore is true when the file carries
// visit ids, meaning the rows should keep them. Any bad row fails the file.
func readBackup(r io.Reader) (visits []models.Visit, restore bool, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read visits backup: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, &BackupError{Err: errors.New("missing header")}
		}
		return nil, false, &BackupError{Err: err}
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, required := range []string{colTowerBase, colDate} {
		if _, ok := idx[required]; !ok {
			return nil, false, &BackupError{Column: required, Err: errors.New("missing column")}
		}
	}
	_, restore = idx[colVisitID]

	visits = []models.Visit{}
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, &BackupError{Row: row, Err: err}
		}

		v, berr := decodeBackupRow(record, idx, restore)
		if berr != nil {
			berr.Row = row
			return nil, false, berr
		}
		visits = append(visits, v)
	}

	return visits, restore, nil
}

func decodeBackupRow(record []string, idx map[string]int, restore bool) (models.Visit, *BackupError) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var v models.Visit

	if restore {
		id, err := strconv.ParseInt(get(colVisitID), 10, 64)
		if err != nil {
			return v, &BackupError{Column: colVisitID, Err: err}
		}
		if id <= 0 {
			return v, &BackupError{Column: colVisitID, Err: errors.New("must be positive")}
		}
		v.VisitID = id
	}

	towerID, err := strconv.ParseInt(get(colTowerBase), 10, 64)
	if err != nil {
		return v, &BackupError{Column: colTowerBase, Err: err}
	}
	v.TowerID = towerID

	date, err := time.Parse(backupDateLayout, get(colDate))
	if err != nil {
		return v, &BackupError{Column: colDate, Err: err}
	}
	v.Date = date

	if notes := get(colNotes); notes != "" {
		v.Notes = &notes
	}
	v.Peal = get(colPeal) == "Y"
	v.Quarter = get(colQuarter) == "Y"

	return v, nil
}
