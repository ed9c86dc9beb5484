package importer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/models"
	"github.com/ngmaloney/weatherd/internal/store"
)

// Importer runs the local historic import of spec §4.7 against baseDir.
type Importer struct {
	baseDir string
	state   *State
	store   *store.Store
	logger  *zap.Logger
}

// New constructs an Importer rooted at baseDir, using statePath for its
// resumable state file.
func New(baseDir, statePath string, st *store.Store, logger *zap.Logger) (*Importer, error) {
	state, err := LoadState(statePath)
	if err != nil {
		return nil, fmt.Errorf("loading importer state: %w", err)
	}
	return &Importer{baseDir: baseDir, state: state, store: st, logger: logger}, nil
}

// Run processes every per-station CSV in baseDir and, if present, the
// daily-summaries-latest.tar.gz bulk archive.
func (im *Importer) Run(ctx context.Context) error {
	entries, err := os.ReadDir(im.baseDir)
	if err != nil {
		return fmt.Errorf("reading base directory %s: %w", im.baseDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case name == "daily-summaries-latest.tar.gz":
			if err := im.processArchive(ctx, filepath.Join(im.baseDir, name)); err != nil {
				im.logger.Warn("processing bulk archive failed", zap.Error(err))
			}
		case strings.HasSuffix(name, ".csv"):
			if err := im.processStationFile(ctx, filepath.Join(im.baseDir, name)); err != nil {
				im.logger.Warn("processing station file failed", zap.String("file", name), zap.Error(err))
			}
		}
	}
	return nil
}

// processStationFile applies the per-file algorithm of spec §4.7 to one
// per-station CSV: skip-if-unchanged, wide-schema detection, row-by-row
// upsert, then relocation into a date subdirectory.
func (im *Importer) processStationFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	mtimeMS := info.ModTime().UnixMilli()

	stationKey, err := stationKeyFromFilename(path)
	if err != nil {
		return err
	}
	if mtimeMS <= im.state.LastSeen(stationKey) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}

	idx, ok := detectWideSchema(header)
	if !ok {
		im.logger.Info("non-wide schema CSV skipped", zap.String("file", path))
		return im.state.Record(stationKey, mtimeMS)
	}

	rows, err := readWideRows(reader, idx)
	if err != nil {
		return fmt.Errorf("reading rows from %s: %w", path, err)
	}

	var maxDate time.Time
	for _, row := range rows {
		dbMax, err := dbMaxFor(ctx, im.store, row.StationID)
		if err != nil {
			return fmt.Errorf("fetching dbMax for %s: %w", row.StationID, err)
		}
		if !dbMax.IsZero() && !row.Date.After(dbMax) {
			continue
		}
		if row.Lat != 0 || row.Lon != 0 {
			if err := im.store.UpsertStation(ctx, row.StationID, row.Name, models.Point{Lat: row.Lat, Lon: row.Lon}, 0, nil); err != nil {
				return fmt.Errorf("upserting station metadata for %s: %w", row.StationID, err)
			}
		}
		if err := im.store.UpsertDailySummary(ctx, toDailySummary(row)); err != nil {
			return fmt.Errorf("upserting daily row for %s: %w", row.StationID, err)
		}
		if row.Date.After(maxDate) {
			maxDate = row.Date
		}
	}

	if err := im.relocate(path, maxDate); err != nil {
		im.logger.Warn("relocating consumed file failed, continuing", zap.String("file", path), zap.Error(err))
	}
	return im.state.Record(stationKey, mtimeMS)
}

// processArchive streams the bulk tar.gz archive, processing only .csv
// entries, then moves the archive into a sibling oldDailys/ folder.
func (im *Importer) processArchive(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	mtimeMS := info.ModTime().UnixMilli()
	if mtimeMS <= im.state.LastSeen(tarGzStateKey) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("opening gzip stream of %s: %w", path, err)
	}
	defer gz.Close()

	dbMaxCache := make(map[string]time.Time)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, ".csv") {
			continue
		}
		if err := im.processArchiveEntry(ctx, tr, dbMaxCache); err != nil {
			im.logger.Warn("archive entry failed, continuing", zap.String("entry", hdr.Name), zap.Error(err))
		}
	}

	if err := im.relocateArchive(path); err != nil {
		im.logger.Warn("relocating archive failed, continuing", zap.String("file", path), zap.Error(err))
	}
	return im.state.Record(tarGzStateKey, mtimeMS)
}

func (im *Importer) processArchiveEntry(ctx context.Context, r io.Reader, dbMaxCache map[string]time.Time) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading entry header: %w", err)
	}

	idx, ok := detectWideSchema(header)
	if !ok {
		return nil
	}

	rows, err := readWideRows(reader, idx)
	if err != nil {
		return fmt.Errorf("reading entry rows: %w", err)
	}

	for _, row := range rows {
		dbMax, cached := dbMaxCache[row.StationID]
		if !cached {
			dbMax, err = dbMaxFor(ctx, im.store, row.StationID)
			if err != nil {
				return fmt.Errorf("fetching dbMax for %s: %w", row.StationID, err)
			}
			dbMaxCache[row.StationID] = dbMax
		}
		if !dbMax.IsZero() && !row.Date.After(dbMax) {
			continue
		}
		if err := im.store.UpsertDailySummary(ctx, toDailySummary(row)); err != nil {
			return fmt.Errorf("upserting daily row for %s: %w", row.StationID, err)
		}
		if row.Date.After(dbMaxCache[row.StationID]) {
			dbMaxCache[row.StationID] = row.Date
		}
	}
	return nil
}

// relocate moves a consumed per-station CSV into <baseDir>/<maxDateSeen>/
// if the base directory is writable; otherwise it logs once and continues,
// per spec §4.7 step 4.
func (im *Importer) relocate(path string, maxDate time.Time) error {
	if maxDate.IsZero() {
		return nil
	}
	destDir := filepath.Join(im.baseDir, maxDate.Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	return os.Rename(path, filepath.Join(destDir, filepath.Base(path)))
}

// relocateArchive moves a consumed tar.gz archive into a sibling
// oldDailys/ folder, per spec §4.7's tar.gz algorithm.
func (im *Importer) relocateArchive(path string) error {
	destDir := filepath.Join(im.baseDir, "oldDailys")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating oldDailys directory: %w", err)
	}
	return os.Rename(path, filepath.Join(destDir, filepath.Base(path)))
}

// stationKeyFromFilename derives the state-file key for a per-station CSV
// from its filename; this key is distinct from the row-derived station_id
// written to the daily_summary table, per the Open Question (c) directive
// that observation writes MUST use the row-derived id, never the filename.
func stationKeyFromFilename(path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	if base == "" {
		return "", fmt.Errorf("cannot derive station key from %s", path)
	}
	return normalizeStationID(base), nil
}

func dbMaxFor(ctx context.Context, st *store.Store, stationID string) (time.Time, error) {
	return st.MaxDailySummaryDate(ctx, st.Ingest, stationID)
}
