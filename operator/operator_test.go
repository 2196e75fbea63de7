package operator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

func TestFaceViscosity(t *testing.T) {
	m := mesh.NewCartesian(2, 1, 1, 1, 1, 1)
	assert.Equal(t, 1, m.NIFaces)
	cVisc := []float64{2.0, 4.0}
	iVisc := make([]float64, m.NIFaces)
	bVisc := make([]float64, m.NBFaces)

	{ // arithmetic mean
		FaceViscosity(m, field.ArithmeticAverage, cVisc, iVisc, bVisc)
		assert.InDelta(t, 3.0, iVisc[0], 1e-12)
		for f := 0; f < m.NBFaces; f++ {
			assert.Equal(t, m.BFaceSurf[f], bVisc[f])
		}
	}
	{ // harmonic mean with even weights
		FaceViscosity(m, field.HarmonicAverage, cVisc, iVisc, bVisc)
		assert.InDelta(t, 8.0/3.0, iVisc[0], 1e-12)
	}
	{ // disabled diffusion writes zeros rather than leaving stale data
		ZeroFaceViscosity(m, iVisc, bVisc)
		assert.Equal(t, 0.0, iVisc[0])
		assert.Equal(t, 0.0, bVisc[0])
	}
}

func TestTimeStepDiagonal(t *testing.T) {
	m := mesh.NewCartesian(2, 1, 1, 1, 1, 1)
	bc := &field.BCCoeffs{
		B:  make([]float64, m.NBFaces),
		Bf: make([]float64, m.NBFaces),
	}
	iFlux := []float64{2.0} // owner cell 0 -> neighbour cell 1
	bFlux := make([]float64, m.NBFaces)
	iVisc := []float64{0.3}
	bVisc := make([]float64, m.NBFaces)
	da := make([]float64, m.NCellsExt)

	{ // non-symmetric: owner takes the outflow, neighbour the inflow
		TimeStepDiagonal(m, true, false, false, bc, iFlux, bFlux, iVisc, bVisc, da)
		assert.InDelta(t, 2.0, da[0], 1e-12)
		assert.InDelta(t, 0.0, da[1], 1e-12)
	}
	{ // symmetric: both sides take the inflow part plus diffusion
		TimeStepDiagonal(m, true, true, true, bc, iFlux, bFlux, iVisc, bVisc, da)
		assert.InDelta(t, 0.3, da[0], 1e-12) // max(-2,0) + 0.3
		assert.InDelta(t, 0.3, da[1], 1e-12)
	}
	{ // boundary inflow weighted by the b coefficient
		bFlux[0], bc.B[0] = -1.0, 0.5
		c := m.BFaceCells[0]
		TimeStepDiagonal(m, true, false, false, bc, iFlux, bFlux, iVisc, bVisc, da)
		want := -0.5 // max(-1,0) + min(-1,0)*0.5
		if c == 0 {
			want += 2.0
		}
		assert.InDelta(t, want, da[c], 1e-12)
		bFlux[0], bc.B[0] = 0, 0
	}
	{ // boundary diffusion enters through bf and the face conductance
		bVisc[1], bc.Bf[1] = 4.0, 0.25
		c := m.BFaceCells[1]
		TimeStepDiagonal(m, false, true, false, bc, iFlux, bFlux, iVisc, bVisc, da)
		want := 0.3 + 4.0*0.25
		assert.InDelta(t, want, da[c], 1e-12)
		bVisc[1], bc.Bf[1] = 0, 0
	}
}

func TestMatrixMatchesDiagonal(t *testing.T) {
	m := mesh.NewCartesian(3, 2, 2, 0.3, 0.2, 0.1)
	bc := &field.BCCoeffs{
		B:  make([]float64, m.NBFaces),
		Bf: make([]float64, m.NBFaces),
	}
	iFlux := make([]float64, m.NIFaces)
	bFlux := make([]float64, m.NBFaces)
	iVisc := make([]float64, m.NIFaces)
	bVisc := make([]float64, m.NBFaces)
	for f := range iFlux {
		iFlux[f] = math.Sin(float64(3*f + 1))
		iVisc[f] = 0.1 + 0.05*float64(f%4)
	}
	for f := range bFlux {
		bFlux[f] = math.Cos(float64(2 * f))
		bVisc[f] = m.BFaceSurf[f]
		bc.B[f] = 0.5
		bc.Bf[f] = 0.25
	}

	for _, symmetric := range []bool{false, true} {
		da := make([]float64, m.NCellsExt)
		TimeStepDiagonal(m, true, true, symmetric, bc, iFlux, bFlux, iVisc, bVisc, da)
		A := Matrix(m, true, true, symmetric, bc, iFlux, bFlux, iVisc, bVisc)
		r, c := A.Dims()
		assert.Equal(t, m.NCells, r)
		assert.Equal(t, m.NCells, c)
		for k := 0; k < m.NCells; k++ {
			assert.InDelta(t, da[k], A.At(k, k), 1e-12)
		}
	}

	{ // off-diagonal couplings are upwind: inflow-only and negative
		A := Matrix(m, true, false, false, bc, iFlux, bFlux, iVisc, bVisc)
		for f := 0; f < m.NIFaces; f++ {
			i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
			assert.InDelta(t, math.Min(iFlux[f], 0), A.At(i, j), 1e-12)
			assert.InDelta(t, -math.Max(iFlux[f], 0), A.At(j, i), 1e-12)
		}
	}
}

func TestTimeStepBoundaryCoeffs(t *testing.T) {
	m := mesh.NewCartesian(2, 1, 1, 0.4, 1, 1)
	b := make([]float64, m.NBFaces)
	bf := make([]float64, m.NBFaces)
	viscl := []float64{1e-3, 2e-3}
	visct := []float64{4e-3, 8e-3}
	bFlux := make([]float64, m.NBFaces)
	bFlux[0] = -1.0 // inflow
	bFlux[1] = 0.5  // outflow

	{ // unsteady, molecular diffusivity only
		eqp := &field.EquationParam{Convection: true, Diffusion: true}
		TimeStepBoundaryCoeffs(m, true, eqp, viscl, visct, bFlux, nil, b, bf)
		c := m.BFaceCells[0]
		assert.Equal(t, 0.0, b[0])
		assert.InDelta(t, viscl[c]/m.BDist[0], bf[0], 1e-15)
		assert.Equal(t, 1.0, b[1])
		assert.Equal(t, 0.0, bf[1])
	}
	{ // turbulent diffusivity folds in when enabled
		eqp := &field.EquationParam{Convection: true, Diffusion: true, TurbDiffusion: true}
		TimeStepBoundaryCoeffs(m, true, eqp, viscl, visct, bFlux, nil, b, bf)
		c := m.BFaceCells[0]
		assert.InDelta(t, (viscl[c]+visct[c])/m.BDist[0], bf[0], 1e-15)
	}
	{ // no diffusion: inflow conductance hint is zero
		eqp := &field.EquationParam{Convection: true}
		TimeStepBoundaryCoeffs(m, true, eqp, viscl, visct, bFlux, nil, b, bf)
		assert.Equal(t, 0.0, bf[0])
	}
	{ // steady: one third of the velocity operator trace
		velBC := &field.BCCoeffs{
			B33:  make([][3][3]float64, m.NBFaces),
			Bf33: make([][3][3]float64, m.NBFaces),
		}
		velBC.B33[0] = [3][3]float64{{1, 9, 9}, {9, 2, 9}, {9, 9, 3}}
		velBC.Bf33[0] = [3][3]float64{{0.3, 0, 0}, {0, 0.3, 0}, {0, 0, 0.3}}
		eqp := &field.EquationParam{Convection: true, Diffusion: true}
		TimeStepBoundaryCoeffs(m, false, eqp, viscl, visct, bFlux, velBC, b, bf)
		assert.InDelta(t, 2.0, b[0], 1e-12)
		assert.InDelta(t, 0.3, bf[0], 1e-12)
		assert.Equal(t, 0.0, b[1]) // zero blocks elsewhere
	}
}
