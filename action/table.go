package action

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrIndexOutOfRange is returned when a policy index falls outside the table.
	ErrIndexOutOfRange = errors.New("action index out of range")
	// ErrEmptyBatch is returned by DecodeDense for a zero-length batch.
	ErrEmptyBatch = errors.New("empty action batch")
)

// Table is the ordered set of control vectors exposed to the policy as a
// discrete action space. Index assignment is part of the model contract:
// a checkpoint trained against one ordering is meaningless under another.
// A Table is never mutated after NewTable and may be shared between goroutines.
type Table struct {
	vectors []Vector
	ground  int // entries before the first aerial one
}

// NewTable builds the canonical table: ground maneuvers followed by aerial ones.
func NewTable() *Table {
	vectors := make([]Vector, 0, 126)

	// Ground: steer and yaw move together, boost only with full throttle.
	for _, throttle := range []float64{-1, 0, 1} {
		for _, steer := range []float64{-1, 0, 1} {
			for _, boost := range []float64{0, 1} {
				for _, handbrake := range []float64{0, 1} {
					if boost == 1 && throttle != 1 {
						continue
					}
					t := throttle
					if t == 0 {
						t = boost
					}
					vectors = append(vectors, Vector{t, steer, 0, steer, 0, 0, boost, handbrake})
				}
			}
		}
	}

	ground := len(vectors)

	// Aerial: steer mirrors yaw, handbrake held for air-roll authority.
	for _, pitch := range []float64{-1, 0, 1} {
		for _, yaw := range []float64{-1, 0, 1} {
			for _, roll := range []float64{-1, 0, 1} {
				for _, jump := range []float64{0, 1} {
					for _, boost := range []float64{0, 1} {
						// Already covered by the ground entries
						if pitch == 0 && roll == 0 && jump == 0 {
							continue
						}
						vectors = append(vectors, Vector{boost, yaw, pitch, yaw, roll, jump, boost, 1})
					}
				}
			}
		}
	}

	return &Table{vectors: vectors, ground: ground}
}

// Size returns the number of discrete actions.
func (t *Table) Size() int {
	return len(t.vectors)
}

// GroundSize returns the number of ground entries. Indices at or above it
// are aerial.
func (t *Table) GroundSize() int {
	return t.ground
}

// Decode returns the control vector for a single index.
func (t *Table) Decode(index int) (Vector, error) {
	if index < 0 || index >= len(t.vectors) {
		return Vector{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(t.vectors))
	}
	return t.vectors[index], nil
}

// DecodeBatch decodes indices in order. The result always has len(indices)
// elements; any out-of-range index fails the whole batch.
func (t *Table) DecodeBatch(indices []int) ([]Vector, error) {
	out := make([]Vector, len(indices))
	for i, idx := range indices {
		v, err := t.Decode(idx)
		if err != nil {
			return nil, fmt.Errorf("batch element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// DecodeDense decodes indices into a len(indices)×Dims matrix, one row per
// index. A single index still produces a 1×Dims matrix.
func (t *Table) DecodeDense(indices []int) (*mat.Dense, error) {
	if len(indices) == 0 {
		return nil, ErrEmptyBatch
	}
	vectors, err := t.DecodeBatch(indices)
	if err != nil {
		return nil, err
	}
	data := make([]float64, 0, len(vectors)*Dims)
	for _, v := range vectors {
		data = append(data, v[:]...)
	}
	return mat.NewDense(len(vectors), Dims, data), nil
}

// Vectors returns a copy of the table in index order.
func (t *Table) Vectors() []Vector {
	out := make([]Vector, len(t.vectors))
	copy(out, t.vectors)
	return out
}

// Index returns the first index holding v, or -1.
func (t *Table) Index(v Vector) int {
	for i, candidate := range t.vectors {
		if candidate == v {
			return i
		}
	}
	return -1
}
