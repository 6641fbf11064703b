package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pwrsim/internal/solver"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
	indexFile    = "index.db"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run id prefix is ambiguous")
)

// Store keeps each run in its own directory under baseDir and catalogues
// them in a sqlite index.
type Store struct {
	baseDir string
	index   *Index
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory and opens the index.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	idx, err := OpenIndex(filepath.Join(s.baseDir, indexFile))
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

func (s *Store) Close() error {
	return s.index.Close()
}

// RunInfo describes how a run was configured.
type RunInfo struct {
	Scenario string
	Preset   string
	Dt       float64
	Duration float64
	Events   []string
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Elapsed     string             `json:"elapsed,omitempty"`
	Scrammed    bool               `json:"scrammed"`
	ScramReason string             `json:"scram_reason,omitempty"`
	Events      []string           `json:"events,omitempty"`
	Columns     []string           `json:"columns,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	Subcycles   map[string]int     `json:"subcycles,omitempty"`
}

// Save writes metadata.json and trace.csv for result and returns the run id.
func (s *Store) Save(ctx context.Context, info RunInfo, result *solver.Result) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("run id: %w", err)
	}
	runID := id.String()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    info.Scenario,
		Preset:      info.Preset,
		Timestamp:   time.Now(),
		Dt:          info.Dt,
		Duration:    info.Duration,
		Steps:       result.StepsTaken,
		Elapsed:     result.Elapsed.String(),
		Scrammed:    result.Final.Neutronics.Scrammed,
		ScramReason: result.Final.Neutronics.ScramReason,
		Events:      info.Events,
		Columns:     result.Trace.Columns,
		Metrics:     result.Metrics,
		Subcycles:   result.Subcycles,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, traceFile), &result.Trace); err != nil {
		return "", err
	}
	if s.index != nil {
		if err := s.index.Put(ctx, meta); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrace(path string, tr *solver.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, tr.Columns...)); err != nil {
		return err
	}
	for i, row := range tr.Rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, strconv.FormatFloat(tr.Times[i], 'f', 6, 64))
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'g', 10, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns saved runs, oldest first. The index answers when open;
// otherwise run directories are scanned.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	if s.index != nil {
		return s.index.List(ctx, "")
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// Resolve expands a unique prefix of a run id to the full id.
func (s *Store) Resolve(prefix string) (string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return "", err
	}
	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if entry.Name() == prefix {
			return prefix, nil
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrace reads back the sampled trace of a run.
func (s *Store) LoadTrace(runID string) (*solver.Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	tr := &solver.Trace{}
	if len(records) == 0 {
		return tr, nil
	}
	tr.Columns = append([]string(nil), records[0][1:]...)

	for i, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: %w", i+1, err)
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("trace row %d column %s: %w", i+1, tr.Columns[j], err)
			}
		}
		tr.Times = append(tr.Times, t)
		tr.Rows = append(tr.Rows, row)
	}
	return tr, nil
}

// Delete removes a run directory and its index row.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, runID)); err != nil {
		return err
	}
	if s.index != nil {
		return s.index.Delete(ctx, runID)
	}
	return nil
}
