// Command stationimport is the administrative CLI of spec §6's final
// paragraph: it loads a local GHCND stations file, filters to a configured
// bounding box, upserts every match into noaa_station, then exits. Flag
// handling follows the teacher's cmd/marine-terminal pattern (flag.String,
// manual validation, os.Exit on failure) rather than a cobra/viper layer,
// since this CLI takes three inputs and needs no subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/config"
	"github.com/ngmaloney/weatherd/internal/geo"
	"github.com/ngmaloney/weatherd/internal/logging"
	"github.com/ngmaloney/weatherd/internal/stationsfile"
	"github.com/ngmaloney/weatherd/internal/store"
)

func main() {
	file := flag.String("file", "", "path to a ghcnd-stations.txt file (required)")
	bbox := flag.String("bbox", "", "minLon,minLat,maxLon,maxLat to filter stations to (required)")
	dsn := flag.String("dsn", "", "Postgres DSN; defaults to DB_JDBC_URL from the environment")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(1)
	}
	if *bbox == "" {
		fmt.Fprintln(os.Stderr, "Error: --bbox is required")
		os.Exit(1)
	}

	bb, err := geo.ParseBBox(*bbox)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --bbox: %v\n", err)
		os.Exit(1)
	}

	dbDSN := *dsn
	if dbDSN == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --dsn not set and config load failed: %v\n", err)
			os.Exit(1)
		}
		dbDSN = cfg.DBDSN
	}

	logger, err := logging.New(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := importStations(*file, bb, dbDSN, logger); err != nil {
		logger.Error("station import failed", zap.Error(err))
		os.Exit(1)
	}
}

func importStations(file string, bb geo.BBox, dsn string, logger *zap.Logger) error {
	source, err := stationsfile.Load(file)
	if err != nil {
		return fmt.Errorf("loading stations file: %w", err)
	}

	st, err := store.Open(dsn, 1, 1)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	matched, err := source.StationsInBBox(bb)
	if err != nil {
		return fmt.Errorf("filtering stations to bbox: %w", err)
	}

	var imported int
	for _, station := range matched {
		if err := st.UpsertStation(ctx, station.StationID, station.Name, station.Point, station.ElevationM, station.Metadata); err != nil {
			logger.Warn("upserting station failed", zap.String("station_id", station.StationID), zap.Error(err))
			continue
		}
		imported++
	}

	logger.Info("station import complete",
		zap.Int("matched", len(matched)), zap.Int("imported", imported), zap.Int("total_in_file", len(source.All())))
	return nil
}
