package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/pmgrav/internal/power"
	"github.com/san-kum/pmgrav/internal/vpm"
)

const metadataFile = "metadata.json"

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one run and every time step it solved.
type RunMetadata struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Seed      int64        `json:"seed"`
	Nc        int          `json:"nc"`
	BoxSize   float64      `json:"box_size"`
	Transform string       `json:"transform"`
	Schedule  []vpm.Config `json:"schedule"`
	Steps     []StepRecord `json:"steps"`
}

type StepRecord struct {
	A        float64 `json:"a"`
	Nmesh    int     `json:"nmesh"`
	Factor   int     `json:"factor"`
	Spectrum string  `json:"spectrum,omitempty"`
	AccRMS   float64 `json:"acc_rms"`
	AccMax   float64 `json:"acc_max"`
	Seconds  float64 `json:"seconds"`
}

// Create allocates a directory for a new run and records its metadata.
func (s *Store) Create(meta *RunMetadata) error {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("pm%05d_%d", meta.Seed, meta.Timestamp.Unix())
	}
	if err := os.MkdirAll(s.RunDir(meta.ID), 0755); err != nil {
		return err
	}
	return s.SaveMetadata(meta)
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) SaveMetadata(meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(s.RunDir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// SaveSpectrum writes a spectrum file into the run directory and returns
// its name relative to that directory.
func (s *Store) SaveSpectrum(runID, basename string, seed int64, a float64, ps *power.Spectrum, meta power.Meta) (string, error) {
	name := SpectrumFileName(basename, seed, a)
	path := filepath.Join(s.RunDir(runID), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteSpectrum(f, ps, meta); err != nil {
		f.Close()
		return "", err
	}
	return name, f.Close()
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSpectrum reads the spectrum recorded for step i of a run.
func (s *Store) LoadSpectrum(runID string, step int) (*power.Spectrum, power.Meta, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, power.Meta{}, err
	}
	if step < 0 || step >= len(meta.Steps) {
		return nil, power.Meta{}, fmt.Errorf("storage: run %s has no step %d", runID, step)
	}
	name := meta.Steps[step].Spectrum
	if name == "" {
		return nil, power.Meta{}, fmt.Errorf("storage: run %s step %d measured no spectrum", runID, step)
	}
	return LoadSpectrum(filepath.Join(s.RunDir(runID), name))
}
