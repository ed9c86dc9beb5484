// Package stationsfile reads the local GHCN "ghcnd-stations.txt" fixed-width
// station list preferred by the NOAA ingest pipeline's station-discovery
// step over the live API, per spec §4.6 step 1, and by the administrative
// import CLI of spec §6's final paragraph. The fixed-width column layout is
// NOAA's own published format (ID 1-11, LATITUDE 13-20, LONGITUDE 22-30,
// ELEVATION 32-37, STATE 39-40, NAME 42-71).
package stationsfile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/models"
)

// Source reads stations from a local ghcnd-stations.txt file, implementing
// noaaingest.LocalStationSource.
type Source struct {
	stations []models.Station
}

// Load parses the fixed-width station file at path.
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stations file %s: %w", path, err)
	}
	defer f.Close()

	var stations []models.Station
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		st, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		stations = append(stations, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stations file %s: %w", path, err)
	}
	return &Source{stations: stations}, nil
}

func parseLine(line string) (models.Station, bool) {
	if len(line) < 71 {
		return models.Station{}, false
	}
	id := strings.TrimSpace(line[0:11])
	lat, err := strconv.ParseFloat(strings.TrimSpace(line[12:20]), 64)
	if err != nil {
		return models.Station{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(line[21:30]), 64)
	if err != nil {
		return models.Station{}, false
	}
	elev, err := strconv.ParseFloat(strings.TrimSpace(line[31:37]), 64)
	if err != nil {
		elev = 0
	}
	name := strings.TrimSpace(line[41:71])

	stationID := id
	if !strings.HasPrefix(stationID, "GHCND:") {
		stationID = "GHCND:" + stationID
	}

	return models.Station{
		StationID:  stationID,
		Name:       name,
		Point:      models.Point{Lat: lat, Lon: lon},
		ElevationM: elev,
	}, true
}

// StationsInBBox returns every parsed station whose point falls inside bb.
func (s *Source) StationsInBBox(bb geo.BBox) ([]models.Station, error) {
	var out []models.Station
	for _, st := range s.stations {
		if st.Point.Lat >= bb.MinLat && st.Point.Lat <= bb.MaxLat &&
			st.Point.Lon >= bb.MinLon && st.Point.Lon <= bb.MaxLon {
			out = append(out, st)
		}
	}
	return out, nil
}

// All returns every parsed station, used by the administrative import CLI.
func (s *Source) All() []models.Station {
	return s.stations
}
