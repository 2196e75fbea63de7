package timestep

import (
	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/operator"
	"github.com/fvkit/fvtime/parallel"
)

// ComputeCourantFourier fills the Courant, volumetric Courant (VOF),
// Fourier and combined Courant+Fourier diagnostic fields for the
// iteration log. It never mutates dt and runs regardless of the
// stepping policy, but skips entirely when no display condition or
// registered field asks for it.
func ComputeCourantFourier(ctx *Context) error {
	m := ctx.Mesh
	reg := ctx.Fields

	eqpVel := reg.EquationParam(ctx.Vel)

	fCourant := reg.ByNameTry(FieldCourant)
	fFourier := reg.ByNameTry(FieldFourier)
	var fVolCourant *field.Field
	if ctx.VOF {
		fVolCourant = reg.ByNameTry(FieldVolumeCourant)
	}

	logDemand := eqpVel.Verbosity >= 2 || ctx.Rep.DefaultActive
	anyTerm := eqpVel.Convection || eqpVel.Diffusion
	if !(eqpVel.Convection && fCourant != nil) &&
		!(eqpVel.Diffusion && fFourier != nil) &&
		!(anyTerm && logDemand) &&
		!(ctx.Compressible != nil && logDemand) {
		return nil
	}

	dt := ctx.Dt.Values()
	rho := ctx.Rho.Values()
	viscl := ctx.ViscL.Values()
	visct := ctx.ViscT.Values()

	iMassFlux, bMassFlux, err := ctx.MassFlux(ctx.Vel)
	if err != nil {
		return err
	}
	var iVofFlux, bVofFlux []float64
	if ctx.VOF {
		voidF, err := reg.ByName(FieldVoidFraction)
		if err != nil {
			return err
		}
		if iVofFlux, bVofFlux, err = ctx.MassFlux(voidF); err != nil {
			return err
		}
	}

	iVisc := make([]float64, m.NIFaces)
	bVisc := make([]float64, m.NBFaces)
	diag := make([]float64, m.NCellsExt)
	bcLoc := &field.BCCoeffs{
		B:  make([]float64, m.NBFaces),
		Bf: make([]float64, m.NBFaces),
	}

	if eqpVel.Diffusion {
		cVisc := make([]float64, m.NCellsExt)
		parallel.For(ctx.NThreads, m.NCellsExt, func(lo, hi int) {
			for c := lo; c < hi; c++ {
				cVisc[c] = viscl[c]
				if eqpVel.TurbDiffusion {
					cVisc[c] += visct[c]
				}
			}
		})
		operator.FaceViscosity(m, eqpVel.FaceVisc, cVisc, iVisc, bVisc)
	} else {
		operator.ZeroFaceViscosity(m, iVisc, bVisc)
	}

	operator.TimeStepBoundaryCoeffs(m, ctx.Opts.Policy != Steady, eqpVel,
		viscl, visct, bMassFlux, ctx.Vel.BC, bcLoc.B, bcLoc.Bf)

	combined := make([]float64, m.NCells)

	passes := []struct {
		active     bool
		label      string
		convection bool
		diffusion  bool
		symmetric  bool
		iFlux      []float64
		bFlux      []float64
		withRho    bool
		out        []float64
	}{
		{
			active:     eqpVel.Convection && fCourant != nil,
			label:      "COURANT",
			convection: eqpVel.Convection,
			iFlux:      iMassFlux, bFlux: bMassFlux,
			withRho: true,
			out:     fieldOwned(fCourant, m.NCells),
		},
		{
			active:     eqpVel.Convection && fVolCourant != nil,
			label:      "VOLUME COURANT",
			convection: eqpVel.Convection,
			iFlux:      iVofFlux, bFlux: bVofFlux,
			withRho: false,
			out:     fieldOwned(fVolCourant, m.NCells),
		},
		{
			active:    eqpVel.Diffusion && fFourier != nil,
			label:     "FOURIER",
			diffusion: eqpVel.Diffusion,
			symmetric: true,
			iFlux:     iMassFlux, bFlux: bMassFlux,
			withRho: true,
			out:     fieldOwned(fFourier, m.NCells),
		},
		{
			active:     anyTerm && ctx.Compressible == nil,
			label:      "COURANT/FOURIER",
			convection: eqpVel.Convection,
			diffusion:  eqpVel.Diffusion,
			symmetric:  !eqpVel.Convection,
			iFlux:      iMassFlux, bFlux: bMassFlux,
			withRho: true,
			out:     combined,
		},
	}

	for i, p := range passes {
		if !p.active {
			continue
		}
		operator.TimeStepDiagonal(m, p.convection, p.diffusion, p.symmetric,
			bcLoc, p.iFlux, p.bFlux, iVisc, bVisc, diag)

		out, withRho := p.out, p.withRho
		parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
			for c := lo; c < hi; c++ {
				v := diag[c] * m.InvVol(c) * dt[c]
				if withRho {
					v /= rho[c]
				}
				out[c] = v
			}
		})

		if i == 3 {
			ctx.Rep.AddArray("Courant/Fourier", "criterion", out)
		}
		if eqpVel.Verbosity >= 2 {
			ctx.reportExtrema(p.label, out)
		}
	}

	return nil
}

func fieldOwned(f *field.Field, n int) []float64 {
	if f == nil {
		return nil
	}
	return f.Values()[:n]
}
