package timestep

import (
	"math"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/gradient"
	"github.com/fvkit/fvtime/operator"
	"github.com/fvkit/fvtime/parallel"
)

// ComputeLocalTimeStep derives the per-cell (or uniform) time step for
// the next iteration from the active stability constraints and writes
// it into the dt field. The dt values on entry are the previous step,
// which the growth smoothing compares against.
func ComputeLocalTimeStep(ctx *Context) error {
	m := ctx.Mesh
	opts := ctx.Opts
	reg := ctx.Fields

	eqpVel := reg.EquationParam(ctx.Vel)
	eqpP := reg.EquationParam(ctx.P)

	fCourant := reg.ByNameTry(FieldCourant)
	fFourier := reg.ByNameTry(FieldFourier)

	if opts.Policy == Constant && !ctx.constantNeedsCompute(eqpVel, fCourant, fFourier) {
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

	// working buffers, scoped to this invocation
	iVisc := make([]float64, m.NIFaces)
	bVisc := make([]float64, m.NBFaces)
	diag := make([]float64, m.NCellsExt)
	bcLoc := &field.BCCoeffs{
		B:  make([]float64, m.NBFaces),
		Bf: make([]float64, m.NBFaces),
	}

	var wcf []float64
	if ctx.Compressible != nil {
		wcf = make([]float64, m.NCellsExt)
		ctx.Compressible.StabilityArray(wcf)
	}

	// face diffusivity
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

	operator.TimeStepBoundaryCoeffs(m, opts.Policy != Steady, eqpVel,
		viscl, visct, bMassFlux, ctx.Vel.BC, bcLoc.B, bcLoc.Bf)

	if opts.Policy == Steady {
		ctx.steadyRelaxation(eqpVel, bcLoc, iMassFlux, bMassFlux, iVisc, bVisc, dt, rho)
		return nil
	}

	// Max thermal time step, computed even with a constant step so it
	// can be displayed.
	var thermalBound []float64
	if opts.ThermalLimiter {
		if thermalBound, err = ctx.thermalTimeScale(eqpP, rho); err != nil {
			return err
		}
	}

	if opts.Policy == Adaptive || opts.Policy == Local {
		var convBound, diffBound, compBound []float64

		// Courant limitation
		if opts.CoMax > 0 && eqpVel.Convection {
			iFlux, bFlux := iMassFlux, bMassFlux
			withRho := true
			if ctx.VOF {
				// the volume Courant number supersedes the mass one
				iFlux, bFlux = iVofFlux, bVofFlux
				withRho = false
			}
			operator.TimeStepDiagonal(m, eqpVel.Convection, false, false,
				bcLoc, iFlux, bFlux, iVisc, bVisc, diag)

			convBound = make([]float64, m.NCells)
			parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
				for c := lo; c < hi; c++ {
					a := diag[c] * m.InvVol(c)
					if withRho {
						a /= rho[c]
					}
					convBound[c] = opts.CoMax / math.Max(a, epsZero)
				}
			})
			if opts.Policy == Adaptive {
				ctx.collapseMin(convBound)
			}
		}

		// Fourier limitation
		if opts.FoMax > 0 && eqpVel.Diffusion {
			operator.TimeStepDiagonal(m, false, eqpVel.Diffusion, true,
				bcLoc, iMassFlux, bMassFlux, iVisc, bVisc, diag)

			diffBound = make([]float64, m.NCells)
			parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
				for c := lo; c < hi; c++ {
					a := diag[c] * m.InvVol(c) / rho[c]
					diffBound[c] = opts.FoMax / math.Max(a, epsZero)
				}
			})
			if opts.Policy == Adaptive {
				ctx.collapseMin(diffBound)
			}
		}

		// Compressible density-positivity limitation. wcf stays
		// intact: it is reused below for display.
		if opts.CoMax > 0 && ctx.Compressible != nil {
			compBound = make([]float64, m.NCells)
			parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
				for c := lo; c < hi; c++ {
					compBound[c] = opts.CFLMax / math.Max(wcf[c], epsZero)
				}
			})
			if opts.Policy == Adaptive {
				ctx.collapseMin(compBound)
			}
		}

		// Most restrictive limitation
		bound := convBound
		switch {
		case convBound != nil && diffBound != nil:
			for c := 0; c < m.NCells; c++ {
				bound[c] = math.Min(bound[c], diffBound[c])
			}
		case convBound == nil:
			bound = diffBound
		}
		if compBound != nil {
			if bound == nil {
				bound = compBound
			} else {
				for c := 0; c < m.NCells; c++ {
					bound[c] = math.Min(bound[c], compBound[c])
				}
			}
		}

		if bound != nil {
			// Progressive increase, immediate decrease
			growth := 1.0 + opts.GrowthRate
			parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
				for c := lo; c < hi; c++ {
					if bound[c] >= dt[c] {
						dt[c] = math.Min(growth*dt[c], bound[c])
					} else {
						dt[c] = bound[c]
					}
				}
			})
		}

		// Limit by the max thermal time step
		if opts.ThermalLimiter {
			nClip := 0
			vmin, vmax := dt[0], dt[0]
			for c := 0; c < m.NCells; c++ {
				vmin = math.Min(vmin, dt[c])
				vmax = math.Max(vmax, dt[c])
				if dt[c] > thermalBound[c] {
					nClip++
					dt[c] = thermalBound[c]
				}
			}
			ctx.Rep.Clipping("dt (clip/dtrho)", nClip, vmin, vmax)

			if opts.Policy == Adaptive {
				ctx.collapseMin(dt)
			}
		}

		// Clip with respect to DtMin and DtMax
		if opts.Policy == Adaptive {
			ctx.applyUniformStep(eqpP, dt)
		} else {
			ctx.clipLocalStep(eqpP, dt)
		}
	}

	// Ratio dt / thermal dt, for the iteration log
	if opts.ThermalLimiter && ctx.Rep.DefaultActive {
		ratio := make([]float64, m.NCells)
		parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
			for c := lo; c < hi; c++ {
				ratio[c] = dt[c] / thermalBound[c]
			}
		})
		ctx.Rep.AddArray("Dt/Dtrho max", "criterion", ratio)
	}

	// Compressible CFL for the log
	if ctx.Compressible != nil && (ctx.Rep.DefaultActive || eqpP.Verbosity >= 2) {
		cfl := make([]float64, m.NCells)
		parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
			for c := lo; c < hi; c++ {
				cfl[c] = wcf[c] * dt[c]
			}
		})
		ctx.Rep.AddArray("CFL / Mass", "criterion", cfl)
		if eqpP.Verbosity >= 2 {
			ctx.reportExtrema("CFL/MAS", cfl)
		}
	}

	return nil
}

// constantNeedsCompute reproduces the fixed-step early-out: nothing to
// do unless a diagnostic field is registered or logging demands the
// diagnostic-only pass.
func (ctx *Context) constantNeedsCompute(eqpVel *field.EquationParam, fCourant, fFourier *field.Field) bool {
	if (eqpVel.Convection && fCourant != nil) || (eqpVel.Diffusion && fFourier != nil) {
		return true
	}
	if eqpVel.Verbosity >= 2 || ctx.Rep.DefaultActive {
		if eqpVel.Convection || eqpVel.Diffusion || ctx.Compressible != nil {
			return true
		}
	}
	return false
}

// thermalTimeScale computes 1/sqrt(max(0+, grad(rho).g / rho)) with a
// zero-Dirichlet-style density boundary coefficient (a = rho_b, b = 0),
// using the pressure variable's reconstruction options.
func (ctx *Context) thermalTimeScale(eqpP *field.EquationParam, rho []float64) ([]float64, error) {
	m := ctx.Mesh

	bcRho := &field.BCCoeffs{
		A: ctx.RhoB.Values(),
		B: make([]float64, m.NBFaces),
	}
	gopts := gradient.Options{
		Method:    eqpP.Gradient,
		NSweeps:   eqpP.NSweeps,
		Epsilon:   eqpP.Epsilon,
		Verbosity: eqpP.Verbosity,
	}
	grad := make([][3]float64, m.NCellsExt)
	if err := gradient.Scalar(m, gopts, bcRho, rho, grad); err != nil {
		return nil, err
	}

	w := make([]float64, m.NCells)
	g := ctx.Gravity
	parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
		for c := lo; c < hi; c++ {
			s := (grad[c][0]*g[0] + grad[c][1]*g[1] + grad[c][2]*g[2]) / rho[c]
			w[c] = 1.0 / math.Sqrt(math.Max(epsZero, s))
		}
	})
	return w, nil
}

// steadyRelaxation overwrites dt with the pseudo-relaxation
// coefficient relax * rho * V / max(A, eps), A being the combined
// convection+diffusion diagonal.
func (ctx *Context) steadyRelaxation(eqpVel *field.EquationParam, bcLoc *field.BCCoeffs,
	iMassFlux, bMassFlux, iVisc, bVisc, dt, rho []float64) {

	m := ctx.Mesh
	symmetric := !eqpVel.Convection
	operator.TimeStepDiagonal(m, eqpVel.Convection, eqpVel.Diffusion, symmetric,
		bcLoc, iMassFlux, bMassFlux, iVisc, bVisc, dt)

	relax := eqpVel.RelaxV
	parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
		for c := lo; c < hi; c++ {
			dt[c] = relax * rho[c] * m.CellVol[c] / math.Max(dt[c], epsZero)
		}
	})
	if m.Halo != nil {
		m.Halo.SyncScalars(dt, 1)
	}
}

// collapseMin replaces every owned cell's value with the global
// minimum across cells and ranks.
func (ctx *Context) collapseMin(vals []float64) {
	n := ctx.Mesh.NCells
	v := ctx.Comm.Min(parallel.Min(vals, n))
	parallel.For(ctx.NThreads, n, func(lo, hi int) {
		for c := lo; c < hi; c++ {
			vals[c] = v
		}
	})
}

// applyUniformStep clips the (already uniform) step to the configured
// bounds, negotiates it with coupled codes, advances the time state,
// and broadcasts the settled scalar back onto every cell.
func (ctx *Context) applyUniformStep(eqpP *field.EquationParam, dt []float64) {
	m := ctx.Mesh
	opts := ctx.Opts
	ts := ctx.Time

	nMin, nMax := 0, 0
	dtLoc := dt[0]
	if dtLoc > opts.DtMax {
		dtLoc = opts.DtMax
		nMax = m.NCells
	}
	if dtLoc < opts.DtMin {
		dtLoc = opts.DtMin
		nMin = m.NCells
	}

	var negotiatedMax int
	dtLoc, negotiatedMax = ctx.Coupler.Sync(dtLoc, ts.NtCur-1, ts.NtMax)
	ts.NtMax = negotiatedMax

	ctx.Rep.ClipBounds(ctx.Dt.Name, nMin, nMax, opts.DtMin, opts.DtMax)

	if ts.NtMax > ts.NtPrev {
		ts.UpdateDt(dtLoc)
		ctx.Rep.Banner(ts.TCur, ts.NtCur)
	}

	parallel.For(ctx.NThreads, m.NCells, func(lo, hi int) {
		for c := lo; c < hi; c++ {
			dt[c] = dtLoc
		}
	})
	if m.Halo != nil {
		m.Halo.SyncScalars(dt, 1)
	}

	if eqpP.Verbosity >= 2 {
		counts := []int64{int64(nMin), int64(nMax)}
		ctx.Comm.Sum(counts)
		ctx.Rep.Log.Infof("DT CLIPPING: %d at %11.4e, %d at %11.4e",
			counts[0], opts.DtMin, counts[1], opts.DtMax)
	}
}

// clipLocalStep clips every cell to [DtMin, DtMax], reporting the
// exact count of out-of-range cells in each direction.
func (ctx *Context) clipLocalStep(eqpP *field.EquationParam, dt []float64) {
	m := ctx.Mesh
	opts := ctx.Opts

	nMin, nMax := 0, 0
	vmin, vmax := dt[0], dt[0]
	for c := 0; c < m.NCells; c++ {
		vmin = math.Min(vmin, dt[c])
		vmax = math.Max(vmax, dt[c])
		if dt[c] > opts.DtMax {
			nMax++
			dt[c] = opts.DtMax
		}
		if dt[c] < opts.DtMin {
			nMin++
			dt[c] = opts.DtMin
		}
	}
	ctx.Rep.ClipBounds(ctx.Dt.Name, nMin, nMax, opts.DtMin, opts.DtMax)
	if m.Halo != nil {
		m.Halo.SyncScalars(dt, 1)
	}

	if eqpP.Verbosity >= 2 {
		counts := []int64{int64(nMin), int64(nMax)}
		ctx.Comm.Sum(counts)
		ctx.Rep.Log.Infof("DT CLIPPING: %d at %11.4e, %d at %11.4e",
			counts[0], opts.DtMin, counts[1], opts.DtMax)
	}
}

// reportExtrema logs a diagnostic's global min and max with the
// coordinates of the owning cells.
func (ctx *Context) reportExtrema(label string, vals []float64) {
	m := ctx.Mesh
	lo, hi := parallel.MinMaxLoc(vals, m.NCells)
	loV, loXYZ := ctx.Comm.MinLoc(lo.Value, m.CellCen[lo.Index])
	hiV, hiXYZ := ctx.Comm.MaxLoc(hi.Value, m.CellCen[hi.Index])
	ctx.Rep.Extrema(label, hiV, hiXYZ, loV, loXYZ)
}
