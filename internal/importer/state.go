// Package importer implements the local historic bulk-import pipeline of
// spec §4.7: per-station delta CSVs, a daily-summaries-latest.tar.gz bulk
// archive, and an idempotent resumable state file keyed by the
// filename-derived key (one per CSV, a reserved key for the archive); the
// station_id written to noaa_daily_summary always comes from the row.
// File handling follows the teacher's encoding/csv.Reader idiom
// (internal/geocoding/provision.go): plain header-indexed row reads, no
// third-party CSV library, since none appears anywhere in the pack.
package importer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// tarGzStateKey is the reserved state key for the bulk archive, distinct
// from any "GHCND:<id>" per-station key.
const tarGzStateKey = "__daily-summaries-latest.tar.gz__"

// State maps a logical key ("GHCND:<id>" for per-station CSVs, or the
// reserved tar.gz key) to the last-seen modification time in Unix
// milliseconds.
type State struct {
	mu   sync.Mutex
	path string
	seen map[string]int64
}

// LoadState reads the state file at path, or returns an empty State if it
// does not yet exist.
func LoadState(path string) (*State, error) {
	s := &State{path: path, seen: make(map[string]int64)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening state file %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&s.seen); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", path, err)
	}
	return s, nil
}

// LastSeen returns the recorded mtime (ms) for key, or 0 if unrecorded.
func (s *State) LastSeen(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key]
}

// Record updates key's last-seen mtime and persists the state file.
func (s *State) Record(key string, mtimeMS int64) error {
	s.mu.Lock()
	s.seen[key] = mtimeMS
	snapshot := make(map[string]int64, len(s.seen))
	for k, v := range s.seen {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return s.save(snapshot)
}

func (s *State) save(snapshot map[string]int64) error {
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating state temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		f.Close()
		return fmt.Errorf("encoding state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
