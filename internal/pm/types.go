package pm

import "github.com/san-kum/pmgrav/internal/grid"

// Attribute selects which particle fields a ghost exchange carries.
type Attribute uint

const (
	AttrPosition Attribute = 1 << iota
	AttrVelocity
	AttrAccX
	AttrAccY
	AttrAccZ
	AttrDensity
)

// AccelerationAttr returns the attribute of one acceleration component.
func AccelerationAttr(axis int) Attribute {
	switch axis {
	case 0:
		return AttrAccX
	case 1:
		return AttrAccY
	default:
		return AttrAccZ
	}
}

func (a Attribute) Has(b Attribute) bool { return a&b == b }

// ParticleStore gives access to local particles followed by any ghosts
// appended to it. Indices run over [0, Len()+ghosts).
type ParticleStore interface {
	Len() int
	Position(i int) [3]float64
	Velocity(i int) [3]float64
	SetAcceleration(i, axis int, v float64)
}

// Ghosts is one live ghost exchange. Reduce adds the attribute of every
// ghost back onto its owner; Release drops the ghosts from the store.
type Ghosts interface {
	Count() int
	Reduce(attr Attribute) error
	Release()
}

type GhostExchanger interface {
	Append(store ParticleStore, mesh Mesh, attrs Attribute) (Ghosts, error)
}

// Communicator is the set of ranks sharing one mesh. AllReduceSum blocks
// until every rank has called it and leaves the element-wise sum in every
// buffer on every rank.
type Communicator interface {
	Rank() int
	Size() int
	AllReduceSum(bufs ...[]float64) error
}

// Mesh is the distributed transform collaborator for one mesh resolution.
//
// Forward reads a real field of RealLen values and writes an interleaved
// complex field over Geometry().Complex. Inverse does the reverse. Neither
// normalizes, so a round trip multiplies by Geometry().Norm.
type Mesh interface {
	Geometry() *grid.Geometry
	Comm() Communicator
	RealLen() int

	Forward(real, complex []float64) error
	Inverse(complex, real []float64) error

	// Paint assigns the mass of particles [0, n) of store onto real,
	// storing particles per cell.
	Paint(real []float64, store ParticleStore, n int) error
	// Readout interpolates real at pos.
	Readout(real []float64, pos [3]float64) float64
}
