package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lokenilsson/snwk-stats/internal/competition"
	"github.com/lokenilsson/snwk-stats/internal/logger"
)

const (
	resultsPrefix   = "snwk_competition_results_"
	subpagesPrefix  = "snwk_new_subpages_"
	timestampLayout = "20060102_150405"
)

// Storage reads and writes snapshot files in a single data directory.
type Storage struct {
	dataDir string
	log     *logger.Logger
	now     func() time.Time
}

// New creates a Storage rooted at dataDir, creating the directory if needed.
// A ~/ prefix is expanded to the user's home directory.
func New(dataDir string, log *logger.Logger) (*Storage, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
		log:     log,
		now:     time.Now,
	}, nil
}

// DataDir returns the resolved data directory path.
func (s *Storage) DataDir() string {
	return s.dataDir
}

// KnownURLs builds the dedup index: every competition URL present in any
// historical results snapshot. A snapshot that cannot be read or decoded is
// logged and skipped so that collection proceeds with whatever history is
// readable.
func (s *Storage) KnownURLs() (map[string]struct{}, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, resultsPrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("globbing result snapshots: %w", err)
	}

	known := make(map[string]struct{})
	for _, path := range paths {
		records, err := readRecords(path)
		if err != nil {
			s.log.Warn("skipping unreadable results snapshot", logger.Fields{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		for _, rec := range records {
			if rec.URL != "" {
				known[rec.URL] = struct{}{}
			}
		}
	}

	return known, nil
}

// WriteListings writes the discovered subpages of this run to a timestamped
// snapshot and returns its path.
func (s *Storage) WriteListings(pages []competition.Pages) (string, error) {
	return s.write(subpagesPrefix, pages)
}

// WriteResults writes the newly parsed competition records of this run to a
// timestamped snapshot and returns its path.
func (s *Storage) WriteResults(records []*competition.Record) (string, error) {
	return s.write(resultsPrefix, records)
}

// write serializes v as an indented JSON array to <prefix><timestamp>.json.
// Two runs within the same second would collide on the filename; the source
// site is slow enough that this has never happened in practice.
func (s *Storage) write(prefix string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(s.dataDir, prefix+s.now().Format(timestampLayout)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	return path, nil
}

// LoadResults reads every results snapshot in the data directory and returns
// the records deduplicated by competition ID, oldest snapshot first; the
// first occurrence of a competition wins. Unreadable snapshots are logged
// and skipped.
func (s *Storage) LoadResults() ([]*competition.Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, resultsPrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("globbing result snapshots: %w", err)
	}
	sort.Strings(paths)

	seen := make(map[string]struct{})
	var all []*competition.Record
	for _, path := range paths {
		records, err := readRecords(path)
		if err != nil {
			s.log.Warn("skipping unreadable results snapshot", logger.Fields{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		for _, rec := range records {
			id := competition.ID(rec.URL)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			all = append(all, rec)
		}
	}

	return all, nil
}

func readRecords(path string) ([]*competition.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var records []*competition.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return records, nil
}
