package importer

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ngmaloney/weatherd/internal/models"
)

// wideColumns are the header names detectWideSchema requires: STATION,
// DATE, and at least one of PRCP/TMAX/TMIN, per spec §4.7 step 2.
var wideColumns = []string{"STATION", "DATE"}
var wideMeasureColumns = []string{"PRCP", "TMAX", "TMIN"}

type columnIndex map[string]int

// detectWideSchema inspects a CSV header and returns its column index if it
// matches the "wide" schema, or ok=false otherwise.
func detectWideSchema(header []string) (columnIndex, bool) {
	idx := make(columnIndex, len(header))
	for i, col := range header {
		idx[strings.ToUpper(strings.TrimSpace(col))] = i
	}
	for _, required := range wideColumns {
		if _, ok := idx[required]; !ok {
			return nil, false
		}
	}
	for _, measure := range wideMeasureColumns {
		if _, ok := idx[measure]; ok {
			return idx, true
		}
	}
	return nil, false
}

// wideRow is one parsed row of a wide-schema CSV, tenths-converted values
// already divided by 10 per spec §4.7 step 3.
type wideRow struct {
	StationID string
	Date      time.Time
	Name      string
	Lat, Lon  float64
	TMaxC     *float64
	TMinC     *float64
	PrcpMM    *float64
	Raw       []string
}

// readWideRows streams every data row of a wide-schema CSV from r given its
// column index, skipping rows that fail to parse a station id or date.
func readWideRows(r *csv.Reader, idx columnIndex) ([]wideRow, error) {
	var out []wideRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		row, ok := parseWideRow(record, idx)
		if !ok {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func parseWideRow(record []string, idx columnIndex) (wideRow, bool) {
	stationCol, ok := idx["STATION"]
	if !ok || stationCol >= len(record) {
		return wideRow{}, false
	}
	dateCol, ok := idx["DATE"]
	if !ok || dateCol >= len(record) {
		return wideRow{}, false
	}

	stationID := normalizeStationID(strings.TrimSpace(record[stationCol]))
	date, err := parseFlexibleDate(record[dateCol])
	if err != nil {
		return wideRow{}, false
	}

	row := wideRow{StationID: stationID, Date: date, Raw: record}
	if col, ok := idx["NAME"]; ok && col < len(record) {
		row.Name = record[col]
	}
	if col, ok := idx["LATITUDE"]; ok && col < len(record) {
		if v, err := strconv.ParseFloat(record[col], 64); err == nil {
			row.Lat = v
		}
	}
	if col, ok := idx["LONGITUDE"]; ok && col < len(record) {
		if v, err := strconv.ParseFloat(record[col], 64); err == nil {
			row.Lon = v
		}
	}
	if col, ok := idx["TMAX"]; ok && col < len(record) {
		row.TMaxC = tenthsToUnit(record[col])
	}
	if col, ok := idx["TMIN"]; ok && col < len(record) {
		row.TMinC = tenthsToUnit(record[col])
	}
	if col, ok := idx["PRCP"]; ok && col < len(record) {
		row.PrcpMM = tenthsToUnit(record[col])
	}
	return row, true
}

// tenthsToUnit parses a GHCN tenths-of-a-unit field, dividing by 10 per spec
// §4.7 step 3, and returns nil for blank/unparsable values.
func tenthsToUnit(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	v /= 10
	return &v
}

func parseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// normalizeStationID prefixes "GHCND:" when absent, mirroring the store's
// write-boundary normalisation.
func normalizeStationID(id string) string {
	const prefix = "GHCND:"
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// toDailySummary converts a parsed wide row into the persisted shape.
func toDailySummary(row wideRow) models.DailySummary {
	raw, _ := json.Marshal(row.Raw)
	return models.DailySummary{
		StationID: row.StationID,
		Date:      row.Date,
		TMaxC:     row.TMaxC,
		TMinC:     row.TMinC,
		PrcpMM:    row.PrcpMM,
		RawJSON:   raw,
	}
}
