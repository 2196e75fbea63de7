// Package operator assembles the per-face transport coefficients and
// the per-cell diagonal of the convection/diffusion pseudo-time
// operator that the time-step controller bounds against.
package operator

import (
	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

const epsZero = 1e-12

// FaceViscosity averages a cell diffusivity onto faces. Interior faces
// carry mean * surface / distance with the mean selected by avg;
// boundary faces carry the bare face surface, the one-sided
// distance-weighted conductance being folded into the boundary
// coefficient instead. Output arrays are fully overwritten.
func FaceViscosity(m *mesh.Mesh, avg field.FaceAverage, cVisc, iVisc, bVisc []float64) {
	for f := 0; f < m.NIFaces; f++ {
		i, j := m.IFaceCells[f][0], m.IFaceCells[f][1]
		vi, vj := cVisc[i], cVisc[j]
		var mean float64
		switch avg {
		case field.HarmonicAverage:
			w := m.Weight[f]
			mean = vi * vj / max(w*vi+(1.0-w)*vj, epsZero)
		default:
			mean = 0.5 * (vi + vj)
		}
		iVisc[f] = mean * m.IFaceSurf[f] / m.IDist[f]
	}
	for f := 0; f < m.NBFaces; f++ {
		bVisc[f] = m.BFaceSurf[f]
	}
}

// ZeroFaceViscosity defines all face coefficients as zero. Callers may
// not assume a particular previous memory state when diffusion is
// disabled, so the arrays are written rather than skipped.
func ZeroFaceViscosity(m *mesh.Mesh, iVisc, bVisc []float64) {
	for f := range iVisc[:m.NIFaces] {
		iVisc[f] = 0
	}
	for f := range bVisc[:m.NBFaces] {
		bVisc[f] = 0
	}
}
