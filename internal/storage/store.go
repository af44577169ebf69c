// Package storage persists integration runs on disk. Each run lives in its
// own directory named by a random UUID and holds metadata.json and
// states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID           string             `json:"id"`
	Problem      string             `json:"problem"`
	Integrator   string             `json:"integrator"`
	Timestamp    time.Time          `json:"timestamp"`
	T0           float64            `json:"t0"`
	T1           float64            `json:"t1"`
	TFinal       float64            `json:"t_final"`
	SampleStep   float64            `json:"sample_step"`
	AbsTol       float64            `json:"abs_tol,omitempty"`
	RelTol       float64            `json:"rel_tol,omitempty"`
	Step         float64            `json:"step,omitempty"`
	Params       map[string]float64 `json:"params,omitempty"`
	InitialState []float64          `json:"initial_state"`
	Statistics   map[string]float64 `json:"statistics,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Events       []EventRecord      `json:"events,omitempty"`
	Stopped      bool               `json:"stopped,omitempty"`
}

// EventRecord is one event that occurred during the run.
type EventRecord struct {
	Name   string    `json:"name"`
	Time   float64   `json:"time"`
	Action string    `json:"action"`
	State  []float64 `json:"state"`
}

// Trajectory holds the sampled states of a run.
type Trajectory struct {
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

func (tr Trajectory) Len() int { return len(tr.Times) }

// Save assigns a new ID to meta and writes the run.
func (s *Store) Save(meta RunMetadata, traj Trajectory) (string, error) {
	if len(traj.Times) != len(traj.States) {
		return "", fmt.Errorf("storage: %d times for %d states", len(traj.Times), len(traj.States))
	}

	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), traj); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	metaFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeStates(path string, traj Trajectory) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)

	if len(traj.States) > 0 {
		header := []string{"time"}
		for i := range traj.States[0] {
			header = append(header, fmt.Sprintf("y%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for i := range traj.States {
		row := make([]string, 0, len(traj.States[i])+1)
		row = append(row, formatFloat(traj.Times[i]))
		for _, val := range traj.States[i] {
			row = append(row, formatFloat(val))
		}

		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
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
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrRunNotFound, runID)
	}
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metaPath, err)
	}

	return &meta, nil
}

func (s *Store) LoadStates(runID string) (Trajectory, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return Trajectory{}, fmt.Errorf("%w: invalid id %q", ErrRunNotFound, runID)
	}
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Trajectory{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return Trajectory{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return Trajectory{}, err
	}

	if len(records) < 2 {
		return Trajectory{Times: []float64{}, States: [][]float64{}}, nil
	}

	traj := Trajectory{
		Times:  make([]float64, 0, len(records)-1),
		States: make([][]float64, 0, len(records)-1),
	}

	for i := 1; i < len(records); i++ {
		record := records[i]

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return Trajectory{}, fmt.Errorf("states.csv line %d: %w", i+1, err)
		}

		state := make([]float64, len(record)-1)
		for j := 1; j < len(record); j++ {
			state[j-1], err = strconv.ParseFloat(record[j], 64)
			if err != nil {
				return Trajectory{}, fmt.Errorf("states.csv line %d: %w", i+1, err)
			}
		}
		traj.Times = append(traj.Times, t)
		traj.States = append(traj.States, state)
	}

	return traj, nil
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("%w: invalid id %q", ErrRunNotFound, runID)
	}
	runDir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(runDir)
}

type ExportData struct {
	RunMetadata
	Steps int `json:"steps"`
	Trajectory
}

// Export writes a run as a single JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{RunMetadata: *meta, Steps: traj.Len(), Trajectory: traj})
}
