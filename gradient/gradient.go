// Package gradient reconstructs cell-centered gradients of scalar,
// vector and symmetric tensor fields from face-based schemes, with
// boundary condition correction. Two reconstruction methods are
// supported: iterative Green-Gauss and (optionally weighted)
// least-squares.
package gradient

import (
	"errors"
	"fmt"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// ErrUnsupportedLocation reports a gradient request for a field whose
// degrees of freedom are not cell-centered.
var ErrUnsupportedLocation = errors.New("gradient requires a cell-based field")

// epsZero floors denominators in reconstruction weights.
const epsZero = 1e-12

// Options selects and tunes the reconstruction scheme. The zero value
// is a single-sweep Green-Gauss pass.
type Options struct {
	Method  field.GradientMethod
	NSweeps int     // max iterative correction sweeps (Green-Gauss)
	Epsilon float64 // relative stop criterion for the sweeps
	// Weight is an optional per-cell scalar weighting field used with
	// least-squares reconstruction under heterogeneous diffusivity.
	Weight []float64
	// Coupling marks boundary faces whose face value is imposed by an
	// internally coupled zone instead of the boundary condition law.
	Coupling  *Coupling
	Verbosity int
}

// Coupling is the internal-coupling descriptor: for each listed
// boundary face, Values supplies the face value exchanged with the
// coupled zone.
type Coupling struct {
	Faces  []int
	Values []float64
}

func (c *Coupling) faceValue(bf int) (float64, bool) {
	if c == nil {
		return 0, false
	}
	for k, f := range c.Faces {
		if f == bf {
			return c.Values[k], true
		}
	}
	return 0, false
}

// Scalar computes the cell gradient of a scalar variable. vals must be
// sized for m.NCellsExt; grad is filled for every owned cell, and for
// ghost cells too when the mesh carries a halo.
func Scalar(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64, grad [][3]float64) error {
	if len(vals) < m.NCellsExt {
		return fmt.Errorf("gradient: scalar array has %d entries, mesh needs %d", len(vals), m.NCellsExt)
	}
	switch opts.Method {
	case field.LeastSquares:
		lsqScalar(m, opts, bc, vals, grad)
	default:
		greenGaussScalar(m, opts, bc, vals, grad)
	}
	if m.Halo != nil {
		m.Halo.SyncVectors(grad)
	}
	return nil
}

// Vector computes the 3x3 gradient of a vector variable, component by
// component. vals is interleaved [u0 v0 w0 u1 v1 w1 ...].
func Vector(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64, grad [][3][3]float64) error {
	return componentwise(m, opts, bc, vals, 3, func(c, comp int, g [3]float64) {
		grad[c][comp] = g
	})
}

// SymTensor computes the 6x3 gradient of a symmetric tensor variable.
func SymTensor(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64, grad [][6][3]float64) error {
	return componentwise(m, opts, bc, vals, 6, func(c, comp int, g [3]float64) {
		grad[c][comp] = g
	})
}

func componentwise(m *mesh.Mesh, opts Options, bc *field.BCCoeffs,
	vals []float64, dim int, set func(c, comp int, g [3]float64)) error {

	if len(vals) < dim*m.NCellsExt {
		return fmt.Errorf("gradient: array has %d entries, mesh needs %d (dim %d)",
			len(vals), dim*m.NCellsExt, dim)
	}
	comp := make([]float64, m.NCellsExt)
	cgrad := make([][3]float64, m.NCellsExt)
	for j := 0; j < dim; j++ {
		for c := 0; c < m.NCellsExt; c++ {
			comp[c] = vals[c*dim+j]
		}
		cbc := componentBC(m, bc, j, dim)
		if err := Scalar(m, opts, cbc, comp, cgrad); err != nil {
			return err
		}
		for c := 0; c < m.NCellsExt; c++ {
			set(c, j, cgrad[c])
		}
	}
	return nil
}

// componentBC extracts the scalar boundary law of one component from a
// multi-component coefficient set. Coupled 3x3 blocks reduce to their
// diagonal entry for the component.
func componentBC(m *mesh.Mesh, bc *field.BCCoeffs, j, dim int) *field.BCCoeffs {
	if bc == nil {
		return nil
	}
	out := &field.BCCoeffs{
		A: make([]float64, m.NBFaces),
		B: make([]float64, m.NBFaces),
	}
	for f := 0; f < m.NBFaces; f++ {
		if bc.A != nil {
			out.A[f] = bc.A[f*dim+j]
		}
		switch {
		case bc.B33 != nil && dim == 3:
			out.B[f] = bc.B33[f][j][j]
		case bc.B != nil:
			out.B[f] = bc.B[f*dim+j]
		default:
			out.B[f] = 1.0
		}
	}
	return out
}

// boundaryFaceValue evaluates the face value of a scalar on boundary
// face bf, honoring internal coupling when present, the affine law
// a + b*v_cell otherwise, and falling back to the one-sided cell value
// when no coefficients were supplied (zero-gradient boundary).
func boundaryFaceValue(opts Options, bc *field.BCCoeffs, bf int, vc float64) float64 {
	if v, ok := opts.Coupling.faceValue(bf); ok {
		return v
	}
	if bc == nil {
		return vc
	}
	a, b := 0.0, 1.0
	if bc.A != nil {
		a = bc.A[bf]
	}
	if bc.B != nil {
		b = bc.B[bf]
	}
	return a + b*vc
}
