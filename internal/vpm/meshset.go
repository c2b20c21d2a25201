package vpm

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/pmgrav/internal/pm"
)

// Planner builds the mesh for nmesh cells per side.
type Planner func(nmesh int) (pm.Mesh, error)

// MeshSet holds one planned mesh per schedule entry. Meshes are planned
// once, before stepping begins.
type MeshSet struct {
	schedule *Schedule
	nc       int
	meshes   []pm.Mesh
}

func NewMeshSet(schedule *Schedule, nc int, plan Planner, logger *slog.Logger) (*MeshSet, error) {
	if nc < 1 {
		return nil, pm.Configf("particle grid size must be positive, got %d", nc)
	}
	if logger == nil {
		logger = slog.Default()
	}

	set := &MeshSet{schedule: schedule, nc: nc, meshes: make([]pm.Mesh, schedule.Len())}
	for i := 0; i < schedule.Len(); i++ {
		e := schedule.Entry(i)
		nmesh := nc * e.Factor
		m, err := plan(nmesh)
		if err != nil {
			return nil, fmt.Errorf("plan mesh %d (nmesh %d): %w", i, nmesh, err)
		}
		set.meshes[i] = m
		logger.Debug("mesh planned", "entry", i, "nmesh", nmesh, "a_start", e.AStart)
	}
	return set, nil
}

func (s *MeshSet) Schedule() *Schedule { return s.schedule }

// ParticleGrid is the number of particles per side the factors refer to.
func (s *MeshSet) ParticleGrid() int { return s.nc }

// Find returns the configuration and mesh active at scale factor a.
func (s *MeshSet) Find(a float64) (Config, pm.Mesh, error) {
	i, cfg, err := s.schedule.Select(a)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, s.meshes[i], nil
}
