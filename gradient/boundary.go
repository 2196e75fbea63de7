package gradient

import (
	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// BoundaryIPrimeScalar reconstructs the interior value of a scalar at
// the point I', the projection of each listed boundary face's adjacent
// cell centroid onto the face normal. For least-squares reconstruction
// this solves a face-localized system directly instead of assembling
// the full-domain gradient; the result matches the
// full-gradient-then-extrapolate path to reconstruction tolerance.
func BoundaryIPrimeScalar(m *mesh.Mesh, opts Options, bc *field.BCCoeffs,
	vals []float64, faces []int, out []float64) error {

	if opts.Method == field.LeastSquares {
		lsqBoundaryIPrime(m, opts, bc, vals, faces, out)
		return nil
	}

	grad := make([][3]float64, m.NCellsExt)
	if err := Scalar(m, opts, bc, vals, grad); err != nil {
		return err
	}
	for k, bf := range faces {
		c := m.BFaceCells[bf]
		out[k] = extrapolateIPrime(m, bf, c, vals[c], grad[c])
	}
	return nil
}

func extrapolateIPrime(m *mesh.Mesh, bf, c int, vc float64, g [3]float64) float64 {
	d, n := faceOffset(m, bf, c), m.BFaceNorm[bf]
	dn := d[0]*n[0] + d[1]*n[1] + d[2]*n[2]
	v := vc
	for x := 0; x < 3; x++ {
		// I' sits at normal distance b_dist from the cell centroid
		v += g[x] * (d[x] - n[x]*(dn-m.BDist[bf]))
	}
	return v
}

func faceOffset(m *mesh.Mesh, bf, c int) [3]float64 {
	var d [3]float64
	for x := 0; x < 3; x++ {
		d[x] = m.BFaceCen[bf][x] - m.CellCen[c][x]
	}
	return d
}

// lsqBoundaryIPrime builds the least-squares stencil only for the
// cells adjacent to the requested faces, one slot per distinct cell.
func lsqBoundaryIPrime(m *mesh.Mesh, opts Options, bc *field.BCCoeffs,
	vals []float64, faces []int, out []float64) {

	slot := make(map[int]int, len(faces)) // cell -> system slot
	for _, bf := range faces {
		c := m.BFaceCells[bf]
		if _, seen := slot[c]; !seen {
			slot[c] = len(slot)
		}
	}
	a := make([][6]float64, len(slot))
	rhs := make([][3]float64, len(slot))

	for f := 0; f < m.NIFaces; f++ {
		i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
		si, iOK := slot[i]
		sj, jOK := slot[j]
		if !iOK && !jOK {
			continue
		}
		var dc [3]float64
		dd := 0.0
		for x := 0; x < 3; x++ {
			dc[x] = m.CellCen[j][x] - m.CellCen[i][x]
			dd += dc[x] * dc[x]
		}
		w := 1.0 / (dd + epsZero)
		dv := vals[j] - vals[i]
		if iOK {
			addLSQ(&a[si], &rhs[si], dc, dv, w)
		}
		if jOK {
			for x := 0; x < 3; x++ {
				dc[x] = -dc[x]
			}
			addLSQ(&a[sj], &rhs[sj], dc, -dv, w)
		}
	}

	for f := 0; f < m.NBFaces; f++ {
		c := m.BFaceCells[f]
		s, ok := slot[c]
		if !ok {
			continue
		}
		dc := faceOffset(m, f, c)
		dd := dc[0]*dc[0] + dc[1]*dc[1] + dc[2]*dc[2]
		w := 1.0 / (dd + epsZero)
		dv := boundaryFaceValue(opts, bc, f, vals[c]) - vals[c]
		addLSQ(&a[s], &rhs[s], dc, dv, w)
	}

	grad := make([][3]float64, len(slot))
	solveLSQ(len(slot), a, rhs, grad)

	for k, bf := range faces {
		c := m.BFaceCells[bf]
		out[k] = extrapolateIPrime(m, bf, c, vals[c], grad[slot[c]])
	}
}
