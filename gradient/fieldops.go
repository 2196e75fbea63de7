package gradient

import (
	"fmt"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// OptionsFor derives reconstruction options from a field's equation
// parameters, falling back to the registry defaults for fields with no
// associated transport equation.
func OptionsFor(reg *field.Registry, f *field.Field) Options {
	eqp := reg.EquationParam(f)
	opts := Options{
		Method:    eqp.Gradient,
		NSweeps:   eqp.NSweeps,
		Epsilon:   eqp.Epsilon,
		Verbosity: eqp.Verbosity,
	}
	if eqp.Diffusion {
		if id, err := f.KeyInt(KeyGradientWeighting); err == nil {
			if w, err := reg.ByID(id); err == nil && w.Dim == 1 {
				opts.Weight = w.Values()
			}
		}
	}
	return opts
}

// KeyGradientWeighting names the field metadata key holding the id of
// the scalar diffusivity field used to weight least-squares stencils.
const KeyGradientWeighting = "gradient_weighting_id"

func checkCellField(f *field.Field, wantDim int, op string) ([]float64, error) {
	if f.Location != field.Cells {
		return nil, fmt.Errorf("%s for field %q on location %s: %w",
			op, f.Name, f.Location, ErrUnsupportedLocation)
	}
	if f.Dim != wantDim {
		return nil, fmt.Errorf("%s for field %q: dimension %d, want %d",
			op, f.Name, f.Dim, wantDim)
	}
	return f.Values(), nil
}

func fieldValues(f *field.Field, wantDim int, usePrevious bool, op string) ([]float64, error) {
	vals, err := checkCellField(f, wantDim, op)
	if err != nil {
		return nil, err
	}
	if usePrevious {
		return f.PreviousValues()
	}
	return vals, nil
}

// FieldScalar computes the cell gradient of a scalar field with the
// reconstruction options attached to it.
func FieldScalar(reg *field.Registry, m *mesh.Mesh, f *field.Field,
	usePrevious bool, grad [][3]float64) error {

	vals, err := fieldValues(f, 1, usePrevious, "scalar gradient")
	if err != nil {
		return err
	}
	return Scalar(m, OptionsFor(reg, f), f.BC, vals, grad)
}

// FieldVector computes the 3x3 cell gradient of a vector field.
func FieldVector(reg *field.Registry, m *mesh.Mesh, f *field.Field,
	usePrevious bool, grad [][3][3]float64) error {

	vals, err := fieldValues(f, 3, usePrevious, "vector gradient")
	if err != nil {
		return err
	}
	return Vector(m, OptionsFor(reg, f), f.BC, vals, grad)
}

// FieldSymTensor computes the 6x3 cell gradient of a symmetric tensor
// field.
func FieldSymTensor(reg *field.Registry, m *mesh.Mesh, f *field.Field,
	usePrevious bool, grad [][6][3]float64) error {

	vals, err := fieldValues(f, 6, usePrevious, "tensor gradient")
	if err != nil {
		return err
	}
	return SymTensor(m, OptionsFor(reg, f), f.BC, vals, grad)
}

// InterpolateAtPoints evaluates a scalar field at arbitrary points by
// gradient-corrected extrapolation from the containing cell:
// v(p) = v_c + grad_c . (p - x_c). pointCells[i] is the cell
// containing points[i].
func InterpolateAtPoints(reg *field.Registry, m *mesh.Mesh, f *field.Field,
	pointCells []int, points [][3]float64, out []float64) error {

	vals, err := checkCellField(f, 1, "point interpolation")
	if err != nil {
		return err
	}
	grad := make([][3]float64, m.NCellsExt)
	if err := Scalar(m, OptionsFor(reg, f), f.BC, vals, grad); err != nil {
		return err
	}
	for i, c := range pointCells {
		v := vals[c]
		for x := 0; x < 3; x++ {
			v += grad[c][x] * (points[i][x] - m.CellCen[c][x])
		}
		out[i] = v
	}
	return nil
}

// InterpolateByMean is the P0 variant: each point takes its containing
// cell's value unchanged.
func InterpolateByMean(f *field.Field, pointCells []int, out []float64) {
	vals := f.Values()
	dim := f.Dim
	for i, c := range pointCells {
		for j := 0; j < dim; j++ {
			out[i*dim+j] = vals[c*dim+j]
		}
	}
}
