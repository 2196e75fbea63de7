package gradient

import (
	"gonum.org/v1/gonum/mat"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// lsqScalar reconstructs the gradient by solving, per cell, the 3x3
// normal equations of the weighted least-squares fit over the face
// neighbourhood. Boundary faces contribute through the affine boundary
// law as a pseudo-neighbour at the face centroid.
func lsqScalar(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64, grad [][3]float64) {
	a := make([][6]float64, m.NCellsExt) // packed symmetric normal matrix
	rhs := make([][3]float64, m.NCellsExt)

	for f := 0; f < m.NIFaces; f++ {
		i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
		var dc [3]float64
		dd := 0.0
		for x := 0; x < 3; x++ {
			dc[x] = m.CellCen[j][x] - m.CellCen[i][x]
			dd += dc[x] * dc[x]
		}
		wi := 1.0 / (dd + epsZero)
		wj := wi
		if opts.Weight != nil {
			// harmonic diffusivity weighting: the neighbour with the
			// larger diffusivity dominates the fit
			den := opts.Weight[i] + opts.Weight[j] + epsZero
			wi *= 2.0 * opts.Weight[j] / den
			wj *= 2.0 * opts.Weight[i] / den
		}
		dv := vals[j] - vals[i]
		addLSQ(&a[i], &rhs[i], dc, dv, wi)
		for x := 0; x < 3; x++ {
			dc[x] = -dc[x]
		}
		addLSQ(&a[j], &rhs[j], dc, -dv, wj)
	}

	for f := 0; f < m.NBFaces; f++ {
		c := m.BFaceCells[f]
		var dc [3]float64
		dd := 0.0
		for x := 0; x < 3; x++ {
			dc[x] = m.BFaceCen[f][x] - m.CellCen[c][x]
			dd += dc[x] * dc[x]
		}
		w := 1.0 / (dd + epsZero)
		dv := boundaryFaceValue(opts, bc, f, vals[c]) - vals[c]
		addLSQ(&a[c], &rhs[c], dc, dv, w)
	}

	solveLSQ(m.NCells, a, rhs, grad)
}

func addLSQ(a *[6]float64, rhs *[3]float64, dc [3]float64, dv, w float64) {
	a[0] += w * dc[0] * dc[0]
	a[1] += w * dc[1] * dc[1]
	a[2] += w * dc[2] * dc[2]
	a[3] += w * dc[0] * dc[1]
	a[4] += w * dc[0] * dc[2]
	a[5] += w * dc[1] * dc[2]
	for x := 0; x < 3; x++ {
		rhs[x] += w * dc[x] * dv
	}
}

func solveLSQ(nCells int, a [][6]float64, rhs [][3]float64, grad [][3]float64) {
	A := mat.NewDense(3, 3, nil)
	b := mat.NewVecDense(3, nil)
	var x mat.VecDense
	for c := 0; c < nCells; c++ {
		A.Set(0, 0, a[c][0]+epsZero)
		A.Set(1, 1, a[c][1]+epsZero)
		A.Set(2, 2, a[c][2]+epsZero)
		A.Set(0, 1, a[c][3])
		A.Set(1, 0, a[c][3])
		A.Set(0, 2, a[c][4])
		A.Set(2, 0, a[c][4])
		A.Set(1, 2, a[c][5])
		A.Set(2, 1, a[c][5])
		for k := 0; k < 3; k++ {
			b.SetVec(k, rhs[c][k])
		}
		if err := x.SolveVec(A, b); err != nil {
			// singular stencil (fully masked neighbourhood): flat
			grad[c] = [3]float64{}
			continue
		}
		for k := 0; k < 3; k++ {
			grad[c][k] = x.AtVec(k)
		}
	}
}
