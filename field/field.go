package field

import (
	"errors"
	"fmt"
)

// Lookup and contract errors. Callers match with errors.Is; messages
// always carry the offending field name so a failure is traceable in a
// setup with many transported variables.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownKey      = errors.New("unknown field key")
	ErrNoPreviousState = errors.New("field does not maintain previous time step values")
)

// Location of a field's degrees of freedom.
type Location int

const (
	Cells Location = iota
	InteriorFaces
	BoundaryFaces
	Vertices
)

func (l Location) String() string {
	switch l {
	case Cells:
		return "cells"
	case InteriorFaces:
		return "interior faces"
	case BoundaryFaces:
		return "boundary faces"
	case Vertices:
		return "vertices"
	}
	return "unknown"
}

// BCCoeffs is the affine boundary condition law of a field:
// value at the boundary face = A + B * value at the adjacent cell.
// Af/Bf are the flux-reconstructed variants used when assembling
// operators. B33/Bf33 hold the full 3x3 blocks of a coupled vector
// variable; they are nil for scalar fields.
type BCCoeffs struct {
	A, B   []float64
	Af, Bf []float64

	B33, Bf33 [][3][3]float64
}

// Field is a named per-location array of values with dimension fixed at
// creation. Dim 1 is a scalar, 3 a vector, 6 a symmetric tensor, 9 a
// full tensor. If the field was created with two time levels the
// previous-step shadow is kept in vals[1].
type Field struct {
	ID       int
	Name     string
	Dim      int
	Location Location

	vals [][]float64
	BC   *BCCoeffs

	keys map[string]int
}

// Values returns the current time level.
func (f *Field) Values() []float64 { return f.vals[0] }

// PreviousValues returns the previous time level, failing when the
// field was not configured to retain history. A silent stale read here
// would hide a setup bug, so this is a hard error.
func (f *Field) PreviousValues() ([]float64, error) {
	if len(f.vals) < 2 {
		return nil, fmt.Errorf("field %q: %w", f.Name, ErrNoPreviousState)
	}
	return f.vals[1], nil
}

// TimeLevels reports how many time levels the field stores.
func (f *Field) TimeLevels() int { return len(f.vals) }

// PushTimeLevel copies the current values onto the previous-step
// shadow. It is a no-op for single-level fields.
func (f *Field) PushTimeLevel() {
	if len(f.vals) >= 2 {
		copy(f.vals[1], f.vals[0])
	}
}

// SetKeyInt attaches integer metadata under key, e.g. the id of the
// mass flux field associated with a transported variable.
func (f *Field) SetKeyInt(key string, v int) {
	if f.keys == nil {
		f.keys = make(map[string]int)
	}
	f.keys[key] = v
}

// KeyInt retrieves integer metadata set with SetKeyInt.
func (f *Field) KeyInt(key string) (int, error) {
	if v, ok := f.keys[key]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("field %q, key %q: %w", f.Name, key, ErrUnknownKey)
}
