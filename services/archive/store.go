package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mse_backend_project/models"
)

// ErrNotFound is returned when a requested per-instrument file does not
// exist on disk.
var ErrNotFound = errors.New("file not found")

// Store is the on-disk CSV store for per-instrument archives, analysis
// output and consolidated files. Writes go to a temp file in the target
// directory followed by an atomic rename, and every per-code file is
// guarded by a keyed RW lock, so an API read concurrent with a rebuild of
// the same instrument sees either the old or the new complete file.
type Store struct {
	dataDir     string
	combinedDir string

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewStore creates a store rooted at the given directories, creating them
// if needed.
func NewStore(dataDir, combinedDir string) (*Store, error) {
	for _, dir := range []string{dataDir, combinedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{
		dataDir:     dataDir,
		combinedDir: combinedDir,
		locks:       make(map[string]*sync.RWMutex),
	}, nil
}

// lock returns the RW lock for one instrument code.
func (s *Store) lock(code string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[code]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[code] = l
	}
	return l
}

// ArchivePath returns the archive file path for an instrument.
func (s *Store) ArchivePath(code string) string {
	return filepath.Join(s.dataDir, "data_frame_"+code+".csv")
}

// AnalysisPath returns the indicator output file path for an instrument.
func (s *Store) AnalysisPath(code string) string {
	return filepath.Join(s.dataDir, "data_frame_"+code+"_analysis.csv")
}

// CombinedPath returns the consolidated file path for an instrument.
func (s *Store) CombinedPath(code string) string {
	return filepath.Join(s.combinedDir, "combined_data_frame_"+code+".csv")
}

// writeCSV writes header+rows to path via a temp file and atomic rename.
func writeCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// readCSV reads a CSV file and returns its data rows, header excluded.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[1:], nil
}

// WriteArchive overwrites the instrument's archive with the given records.
func (s *Store) WriteArchive(code string, records []models.TradeRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	l := s.lock(code)
	l.Lock()
	defer l.Unlock()
	return writeCSV(s.ArchivePath(code), models.ArchiveColumns, rows)
}

// ReadArchive reads the instrument's archive.
func (s *Store) ReadArchive(code string) ([]models.TradeRecord, error) {
	l := s.lock(code)
	l.RLock()
	defer l.RUnlock()

	rows, err := readCSV(s.ArchivePath(code))
	if err != nil {
		return nil, err
	}
	records := make([]models.TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := models.TradeRecordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.ArchivePath(code), i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LastDate returns the most recent archived date for an instrument. The
// second return is false when no archive file exists.
func (s *Store) LastDate(code string) (time.Time, bool, error) {
	records, err := s.ReadArchive(code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if len(records) == 0 {
		return time.Time{}, false, nil
	}
	last := records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.After(last) {
			last = rec.Date
		}
	}
	return last, true, nil
}

// MergeArchives concatenates every instrument's archive, in the given code
// order, into the aggregate companies_data.csv. Instruments without an
// archive file (a failed rebuild with no prior state) are skipped.
func (s *Store) MergeArchives(codes []string) error {
	var rows [][]string
	for _, code := range codes {
		l := s.lock(code)
		l.RLock()
		codeRows, err := readCSV(s.ArchivePath(code))
		l.RUnlock()
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				log.Printf("Warning: no archive for %s, skipping in merge", code)
				continue
			}
			return err
		}
		rows = append(rows, codeRows...)
	}
	return writeCSV(filepath.Join(s.dataDir, "companies_data.csv"), models.ArchiveColumns, rows)
}

// WriteAnalysis overwrites the instrument's indicator output file.
func (s *Store) WriteAnalysis(code string, rows []models.IndicatorRow) error {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.Row())
	}
	l := s.lock(code)
	l.Lock()
	defer l.Unlock()
	return writeCSV(s.AnalysisPath(code), models.AnalysisColumns, data)
}

// ReadAnalysis reads the instrument's indicator output file.
func (s *Store) ReadAnalysis(code string) ([]models.IndicatorRow, error) {
	l := s.lock(code)
	l.RLock()
	defer l.RUnlock()

	rows, err := readCSV(s.AnalysisPath(code))
	if err != nil {
		return nil, err
	}
	out := make([]models.IndicatorRow, 0, len(rows))
	for i, row := range rows {
		parsed, err := models.IndicatorRowFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.AnalysisPath(code), i+2, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

// WriteCombined overwrites the instrument's consolidated file.
func (s *Store) WriteCombined(code string, rows []models.ConsolidatedRow) error {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.Row())
	}
	l := s.lock(code)
	l.Lock()
	defer l.Unlock()
	return writeCSV(s.CombinedPath(code), models.ConsolidatedColumns, data)
}

// ReadCombined reads the instrument's consolidated file.
func (s *Store) ReadCombined(code string) ([]models.ConsolidatedRow, error) {
	l := s.lock(code)
	l.RLock()
	defer l.RUnlock()

	rows, err := readCSV(s.CombinedPath(code))
	if err != nil {
		return nil, err
	}
	out := make([]models.ConsolidatedRow, 0, len(rows))
	for i, row := range rows {
		parsed, err := models.ConsolidatedRowFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.CombinedPath(code), i+2, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

// MergeCombined concatenates every instrument's consolidated file, in the
// given code order, into combined_companies_data.csv. Instruments without a
// consolidated file are skipped.
func (s *Store) MergeCombined(codes []string) error {
	var rows [][]string
	for _, code := range codes {
		l := s.lock(code)
		l.RLock()
		codeRows, err := readCSV(s.CombinedPath(code))
		l.RUnlock()
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
		rows = append(rows, codeRows...)
	}
	return writeCSV(filepath.Join(s.combinedDir, "combined_companies_data.csv"), models.ConsolidatedColumns, rows)
}
