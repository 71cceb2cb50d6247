package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/liepid/internal/sim"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Group       string             `json:"group"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	WindupLimit string             `json:"windup_limit"`
	Kp          []float64          `json:"kp"`
	Kd          []float64          `json:"kd"`
	Ki          []float64          `json:"ki"`
	Trajectory  string             `json:"trajectory"`
	Steps       int                `json:"steps"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Trace is the per-tick record of a run as loaded back from disk.
type Trace struct {
	Times      []float64
	ErrorNorms []float64
	Commands   [][]float64
	Integrals  [][]float64
}

// Save writes meta and the samples of result into a new run directory and
// returns the run id. meta.ID, meta.Timestamp and meta.Steps are filled in.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Group, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	if meta.Metrics == nil {
		meta.Metrics = make(map[string]float64, len(result.Metrics))
		for name, v := range result.Metrics {
			// JSON has no encoding for NaN or Inf.
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				meta.Metrics[name] = v
			}
		}
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	if err := writeTrace(filepath.Join(runDir, traceFile), result); err != nil {
		return "", fmt.Errorf("write trace: %w", err)
	}
	return runID, nil
}

func writeTrace(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	dim := 0
	if len(result.Samples) > 0 {
		dim = len(result.Samples[0].U)
	}

	header := []string{"time", "error"}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	for i := 0; i < dim; i++ {
		header = append(header, fmt.Sprintf("i%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range result.Samples {
		row := []string{format(s.T), format(s.Err.Norm())}
		for _, v := range s.U {
			row = append(row, format(v))
		}
		for _, v := range s.Integral {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// List returns the metadata of every stored run, oldest first.
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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	tr := &Trace{}
	if len(records) < 2 {
		return tr, nil
	}
	dim := (len(records[0]) - 2) / 2

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: row %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		tr.Times = append(tr.Times, vals[0])
		tr.ErrorNorms = append(tr.ErrorNorms, vals[1])
		tr.Commands = append(tr.Commands, vals[2:2+dim])
		tr.Integrals = append(tr.Integrals, vals[2+dim:])
	}
	return tr, nil
}
