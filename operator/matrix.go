package operator

import (
	"math"

	"github.com/james-bowman/sparse"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// Matrix assembles the full convection/diffusion operator as a sparse
// CSR matrix over the owned cells. The diagonal accumulates the same
// contributions as TimeStepDiagonal; off-diagonals carry the upwind
// convective and diffusive couplings, so the export doubles as a check
// of the matrix-free estimate and as input to an external solver.
func Matrix(m *mesh.Mesh, convection, diffusion, symmetric bool,
	bc *field.BCCoeffs, iMassFlux, bMassFlux, iVisc, bVisc []float64) *sparse.CSR {

	n := m.NCells
	dok := sparse.NewDOK(n, n)

	conv, diff := 0.0, 0.0
	if convection {
		conv = 1.0
	}
	if diffusion {
		diff = 1.0
	}

	add := func(r, c int, v float64) {
		if r < n && c < n && v != 0 {
			dok.Set(r, c, dok.At(r, c)+v)
		}
	}

	for f := 0; f < m.NIFaces; f++ {
		i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
		phi := iMassFlux[f]

		var di, dj float64
		if symmetric {
			di = conv*math.Max(-phi, 0) + diff*iVisc[f]
			dj = di
		} else {
			di = conv*math.Max(phi, 0) + diff*iVisc[f]
			dj = conv*math.Max(-phi, 0) + diff*iVisc[f]
		}
		add(i, i, di)
		add(j, j, dj)

		// upwind coupling of i to its neighbour j and vice versa
		add(i, j, conv*math.Min(phi, 0)-diff*iVisc[f])
		add(j, i, -conv*math.Max(phi, 0)-diff*iVisc[f])
	}

	for f := 0; f < m.NBFaces; f++ {
		c := m.BFaceCells[f]
		phi := bMassFlux[f]
		add(c, c, conv*(math.Max(phi, 0)+math.Min(phi, 0)*bc.B[f])+
			diff*bVisc[f]*bc.Bf[f])
	}

	return dok.ToCSR()
}
