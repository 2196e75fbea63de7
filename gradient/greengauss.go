package gradient

import (
	"math"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// greenGaussScalar reconstructs the gradient from face-interpolated
// values: grad = (1/V) * sum_f A_f n_f phi_f. The initial pass uses the
// distance-weighted face average; subsequent sweeps correct the face
// value with the current gradient at the face offset, iterating until
// the update norm falls below Epsilon relative to the variable norm.
func greenGaussScalar(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64, grad [][3]float64) {
	nSweeps := opts.NSweeps
	if nSweeps < 1 {
		nSweeps = 1
	}

	prev := make([][3]float64, m.NCellsExt)
	varNorm := 0.0
	for c := 0; c < m.NCells; c++ {
		varNorm += vals[c] * vals[c]
	}
	varNorm = math.Sqrt(varNorm) + epsZero

	for sweep := 0; sweep < nSweeps; sweep++ {
		copy(prev, grad)
		accumulate(m, opts, bc, vals, prev, sweep > 0, grad)

		if sweep == 0 {
			continue
		}
		delta := 0.0
		for c := 0; c < m.NCells; c++ {
			for x := 0; x < 3; x++ {
				d := grad[c][x] - prev[c][x]
				delta += d * d
			}
		}
		if math.Sqrt(delta) <= opts.Epsilon*varNorm {
			break
		}
	}
}

func accumulate(m *mesh.Mesh, opts Options, bc *field.BCCoeffs, vals []float64,
	gprev [][3]float64, reconstruct bool, grad [][3]float64) {

	for c := 0; c < m.NCellsExt; c++ {
		grad[c] = [3]float64{}
	}

	for f := 0; f < m.NIFaces; f++ {
		i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
		w := m.Weight[f]
		fv := w*vals[i] + (1.0-w)*vals[j]

		if reconstruct {
			// offset of the face centroid from the interpolation point
			var off [3]float64
			for x := 0; x < 3; x++ {
				off[x] = m.IFaceCen[f][x] - (w*m.CellCen[i][x] + (1.0-w)*m.CellCen[j][x])
			}
			for x := 0; x < 3; x++ {
				fv += (w*gprev[i][x] + (1.0-w)*gprev[j][x]) * off[x]
			}
		}

		s := m.IFaceSurf[f]
		for x := 0; x < 3; x++ {
			flux := fv * s * m.IFaceNorm[f][x]
			grad[i][x] += flux
			grad[j][x] -= flux
		}
	}

	for f := 0; f < m.NBFaces; f++ {
		c := m.BFaceCells[f]
		vc := vals[c]
		if reconstruct {
			for x := 0; x < 3; x++ {
				vc += gprev[c][x] * (m.BFaceCen[f][x] - m.CellCen[c][x])
			}
		}
		fv := boundaryFaceValue(opts, bc, f, vc)
		s := m.BFaceSurf[f]
		for x := 0; x < 3; x++ {
			grad[c][x] += fv * s * m.BFaceNorm[f][x]
		}
	}

	for c := 0; c < m.NCells; c++ {
		inv := 1.0 / m.CellVol[c]
		for x := 0; x < 3; x++ {
			grad[c][x] *= inv
		}
	}
}
