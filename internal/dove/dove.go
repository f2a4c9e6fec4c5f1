// Package dove decodes the Dove bell tower registry feed.
//
// A feed is a header line naming backslash-separated columns followed by one
// line per tower. Structural problems (a missing column, a row with the wrong
// number of fields) reject the whole feed, since they mean the file is the
// wrong version or corrupt. A row whose numbers do not parse is skipped and
// the rest of the feed is kept.
package dove

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/stwalsh4118/bellfinder/internal/models"
)

// Delimiter separates fields on every line of a Dove feed.
const Delimiter = `\`

// Column identifies one of the Dove columns a tower is built from.
type Column int

// Required columns in canonical order.
const (
	ColTowerBase Column = iota
	ColPlace
	ColPlaceCL
	ColCounty
	ColDedication
	ColBells
	ColWeight
	ColUnringable
	ColPracticeNight
	ColPracticeExtra
	ColLatitude
	ColLongitude
	numColumns
)

var columnNames = [numColumns]string{
	ColTowerBase:     "TowerBase",
	ColPlace:         "Place",
	ColPlaceCL:       "PlaceCL",
	ColCounty:        "County",
	ColDedication:    "Dedicn",
	ColBells:         "Bells",
	ColWeight:        "Wt",
	ColUnringable:    "UR",
	ColPracticeNight: "PracN",
	ColPracticeExtra: "PrXF",
	ColLatitude:      "Lat",
	ColLongitude:     "Long",
}

// String returns the Dove header name of the column.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnNames[c]
}

// RequiredColumns returns the header names every feed must contain.
func RequiredColumns() []string {
	cols := make([]string, numColumns)
	copy(cols, columnNames[:])
	return cols
}

// Logger receives parse diagnostics. *logger.Logger satisfies it.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Result is the outcome of a structurally valid feed.
type Result struct {
	Towers  []models.Tower
	Skipped []RowError
	Rows    int
}

// columnIndex maps each required column to its position in the header.
type columnIndex [numColumns]int

// Parse decodes a feed given as lines, the first being the header.
//
// A non-nil error is always a *FeedError and means the feed was rejected;
// the returned Result is then empty. A nil error with no towers means the
// feed was valid but every row was skipped, or it had no rows.
func Parse(lines []string, log Logger) (Result, error) {
	header := ""
	if len(lines) > 0 {
		header = lines[0]
	}
	observed := strings.Split(header, Delimiter)

	idx, err := resolveColumns(observed)
	if err != nil {
		warn(log, "Dove data: missing column name", map[string]interface{}{
			"column": err.Column,
		})
		return Result{}, err
	}

	var rows []string
	if len(lines) > 1 {
		rows = lines[1:]
	}

	result := Result{
		Towers: make([]models.Tower, 0, len(rows)),
		Rows:   len(rows),
	}
	for i, line := range rows {
		rowNum := i + 1
		fields := strings.Split(line, Delimiter)

		if len(fields) != len(observed) {
			warn(log, "Dove data: wrong number of fields", map[string]interface{}{
				"row":  rowNum,
				"got":  len(fields),
				"want": len(observed),
			})
			return Result{}, &FeedError{
				Kind: ErrFieldCountMismatch,
				Row:  rowNum,
				Got:  len(fields),
				Want: len(observed),
			}
		}

		tower, rowErr := decodeRow(fields, &idx)
		if rowErr != nil {
			rowErr.Row = rowNum
			warn(log, "Dove data: bad value", map[string]interface{}{
				"row":    rowNum,
				"column": rowErr.Column,
				"value":  rowErr.Value,
			})
			result.Skipped = append(result.Skipped, *rowErr)
			continue
		}
		result.Towers = append(result.Towers, tower)
	}

	return result, nil
}

// ParseReader reads a feed and parses it with Parse. Line endings may be
// LF or CRLF and a leading UTF-8 byte order mark is ignored. Read failures
// are returned as plain errors, not *FeedError.
func ParseReader(r io.Reader, log Logger) (Result, error) {
	lines, err := readLines(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read dove feed: %w", err)
	}
	return Parse(lines, log)
}

// maxLineBytes bounds a single feed line.
const maxLineBytes = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(lines) == 0 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		lines = append(lines, strings.TrimSuffix(string(line), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// resolveColumns finds the first position of every required column.
func resolveColumns(observed []string) (columnIndex, *FeedError) {
	var idx columnIndex
	for c := Column(0); c < numColumns; c++ {
		pos := indexOf(observed, columnNames[c])
		if pos < 0 {
			return idx, &FeedError{Kind: ErrMissingRequiredColumn, Column: columnNames[c]}
		}
		idx[c] = pos
	}
	return idx, nil
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}

// decodeRow builds a tower from the fields of one row.
// The returned RowError has no row number set.
func decodeRow(fields []string, idx *columnIndex) (models.Tower, *RowError) {
	get := func(c Column) string { return fields[idx[c]] }
	fail := func(c Column, err error) *RowError {
		return &RowError{Column: columnNames[c], Value: get(c), Err: err}
	}

	towerID, err := strconv.ParseInt(get(ColTowerBase), 10, 64)
	if err != nil {
		return models.Tower{}, fail(ColTowerBase, err)
	}
	if towerID <= 0 {
		return models.Tower{}, fail(ColTowerBase, errNotPositive)
	}

	place := get(ColPlace)
	if place == "" {
		return models.Tower{}, fail(ColPlace, errEmpty)
	}

	bells, err := strconv.Atoi(get(ColBells))
	if err != nil {
		return models.Tower{}, fail(ColBells, err)
	}
	weight, err := strconv.Atoi(get(ColWeight))
	if err != nil {
		return models.Tower{}, fail(ColWeight, err)
	}

	lat, err := parseCoordinate(get(ColLatitude))
	if err != nil {
		return models.Tower{}, fail(ColLatitude, err)
	}
	lng, err := parseCoordinate(get(ColLongitude))
	if err != nil {
		return models.Tower{}, fail(ColLongitude, err)
	}

	return models.Tower{
		TowerID:        towerID,
		Place:          place,
		PlaceQualifier: optional(get(ColPlaceCL)),
		County:         optional(get(ColCounty)),
		Dedication:     optional(get(ColDedication)),
		Bells:          bells,
		Weight:         weight,
		Unringable:     get(ColUnringable) != "",
		PracticeNight:  optional(get(ColPracticeNight)),
		PracticeExtra:  optional(get(ColPracticeExtra)),
		Latitude:       lat,
		Longitude:      lng,
	}, nil
}

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// optional maps an empty field to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func warn(log Logger, msg string, fields map[string]interface{}) {
	if log != nil {
		log.Warn(msg, fields)
	}
}
