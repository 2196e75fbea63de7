package operator

import (
	"math"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// TimeStepDiagonal builds the matrix-free per-cell diagonal estimate of
// the convection/diffusion operator, the single primitive behind every
// Courant/Fourier/steady bound. With symmetric assembly both adjacent
// cells receive the upwind inflow part; otherwise the owner takes the
// outflow and the neighbour the inflow. da must hold NCellsExt entries
// and is fully overwritten.
func TimeStepDiagonal(m *mesh.Mesh, convection, diffusion, symmetric bool,
	bc *field.BCCoeffs, iMassFlux, bMassFlux, iVisc, bVisc, da []float64) {

	for c := 0; c < m.NCellsExt; c++ {
		da[c] = 0
	}

	conv, diff := 0.0, 0.0
	if convection {
		conv = 1.0
	}
	if diffusion {
		diff = 1.0
	}

	if symmetric {
		for f := 0; f < m.NIFaces; f++ {
			i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
			contrib := conv*math.Max(-iMassFlux[f], 0) + diff*iVisc[f]
			da[i] += contrib
			da[j] += contrib
		}
	} else {
		for f := 0; f < m.NIFaces; f++ {
			i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
			phi := iMassFlux[f]
			da[i] += conv*math.Max(phi, 0) + diff*iVisc[f]
			da[j] += conv*math.Max(-phi, 0) + diff*iVisc[f]
		}
	}

	for f := 0; f < m.NBFaces; f++ {
		c := m.BFaceCells[f]
		phi := bMassFlux[f]
		da[c] += conv*(math.Max(phi, 0)+math.Min(phi, 0)*bc.B[f]) +
			diff*bVisc[f]*bc.Bf[f]
	}
}

// TimeStepBoundaryCoeffs fills the boundary coefficient pair (b, bf)
// of the pseudo-time operator. In the unsteady regimes an inflow face
// (negative carrier mass flux) gets (0, one-sided conductance) and an
// outflow face (1, 0). The steady regime instead derives both from one
// third of the trace of the carrier velocity's reconstructed 3x3
// boundary operators.
func TimeStepBoundaryCoeffs(m *mesh.Mesh, unsteady bool, eqp *field.EquationParam,
	viscl, visct, bMassFlux []float64, velBC *field.BCCoeffs, b, bf []float64) {

	if unsteady {
		for f := 0; f < m.NBFaces; f++ {
			if bMassFlux[f] < 0.0 {
				c := m.BFaceCells[f]
				hint := 0.0
				if eqp.Diffusion {
					hint = viscl[c]
					if eqp.TurbDiffusion {
						hint += visct[c]
					}
					hint /= m.BDist[f]
				}
				b[f] = 0.0
				bf[f] = hint
			} else {
				b[f] = 1.0
				bf[f] = 0.0
			}
		}
		return
	}

	const third = 1.0 / 3.0
	for f := 0; f < m.NBFaces; f++ {
		b[f] = trace33(velBC.B33[f]) * third
		bf[f] = trace33(velBC.Bf33[f]) * third
	}
}

func trace33(t [3][3]float64) float64 {
	return t[0][0] + t[1][1] + t[2][2]
}
