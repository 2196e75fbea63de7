package timestep

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
)

// testCase is a uniform carrier flow on a Cartesian box: constant
// density, viscosity and x velocity, with consistent face mass fluxes.
type testCase struct {
	nx, ny, nz int
	dx         float64
	u, rho, mu float64
}

func (tc testCase) build(t *testing.T, opts *Options) *Context {
	m := mesh.NewCartesian(tc.nx, tc.ny, tc.nz, tc.dx, tc.dx, tc.dx)
	reg := field.NewRegistry()

	vel := reg.Add(FieldVelocity, 3, field.Cells, m.NCellsExt, 1)
	reg.Add(FieldPressure, 1, field.Cells, m.NCellsExt, 1)
	rho := reg.Add(FieldDensity, 1, field.Cells, m.NCellsExt, 1)
	rhoB := reg.Add(FieldBoundaryRho, 1, field.BoundaryFaces, m.NBFaces, 1)
	mu := reg.Add(FieldMolecularMu, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(FieldTurbulentMu, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(FieldDt, 1, field.Cells, m.NCellsExt, 1)

	for c := 0; c < m.NCellsExt; c++ {
		vel.Values()[c*3] = tc.u
		rho.Values()[c] = tc.rho
		mu.Values()[c] = tc.mu
	}
	for f := 0; f < m.NBFaces; f++ {
		rhoB.Values()[f] = tc.rho
	}

	iFlux := reg.Add("velocity_inner_mass_flux", 1, field.InteriorFaces, m.NIFaces, 1)
	bFlux := reg.Add("velocity_boundary_mass_flux", 1, field.BoundaryFaces, m.NBFaces, 1)
	vel.SetKeyInt(field.KeyInnerMassFlux, iFlux.ID)
	vel.SetKeyInt(field.KeyBoundaryMassFlux, bFlux.ID)
	for f := 0; f < m.NIFaces; f++ {
		iFlux.Values()[f] = tc.rho * tc.u * m.IFaceNorm[f][0] * m.IFaceSurf[f]
	}
	for f := 0; f < m.NBFaces; f++ {
		bFlux.Values()[f] = tc.rho * tc.u * m.BFaceNorm[f][0] * m.BFaceSurf[f]
	}

	vel.BC = &field.BCCoeffs{
		B33:  make([][3][3]float64, m.NBFaces),
		Bf33: make([][3][3]float64, m.NBFaces),
	}
	for f := 0; f < m.NBFaces; f++ {
		for x := 0; x < 3; x++ {
			vel.BC.B33[f][x][x] = 1.0
		}
	}

	ctx, err := NewContext(m, reg, opts)
	assert.NoError(t, err)
	ctx.Time.NtMax = 10
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	ctx.Rep = NewReporter(quiet)
	return ctx
}

func setDt(ctx *Context, v float64) {
	dt := ctx.Dt.Values()
	for c := range dt {
		dt[c] = v
	}
}

func convectionOnly(ctx *Context) {
	eqp := field.DefaultEquationParam()
	eqp.Diffusion = false
	ctx.Fields.SetEquationParam(ctx.Vel, eqp)
}

func TestLocalStep_CourantBound(t *testing.T) {
	tc := testCase{nx: 4, ny: 3, nz: 2, dx: 0.1, u: 1.0, rho: 1.2, mu: 0}
	opts := &Options{
		Policy: Local, CoMax: 1.0,
		DtMin: 1e-9, DtMax: 10, GrowthRate: 0.1,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)

	// each cell sheds through exactly one downwind face, so the bound
	// is CoMax * dx / u everywhere
	wantBound := opts.CoMax * tc.dx / tc.u

	{ // growth is damped to the 1+GrowthRate factor
		setDt(ctx, 1e-3)
		assert.NoError(t, ComputeLocalTimeStep(ctx))
		for c := 0; c < ctx.Mesh.NCells; c++ {
			assert.InDelta(t, 1.1e-3, ctx.Dt.Values()[c], 1e-12)
		}
	}
	{ // shrink is immediate
		setDt(ctx, 5.0)
		assert.NoError(t, ComputeLocalTimeStep(ctx))
		for c := 0; c < ctx.Mesh.NCells; c++ {
			assert.InDelta(t, wantBound, ctx.Dt.Values()[c], 1e-12)
		}
	}
	{ // repeated growth saturates exactly at the bound
		setDt(ctx, wantBound/1.05)
		assert.NoError(t, ComputeLocalTimeStep(ctx))
		for c := 0; c < ctx.Mesh.NCells; c++ {
			assert.InDelta(t, wantBound, ctx.Dt.Values()[c], 1e-12)
		}
	}
	{ // a stronger flux can only tighten the bound
		fast := testCase{nx: 4, ny: 3, nz: 2, dx: 0.1, u: 3.0, rho: 1.2, mu: 0}
		ctxFast := fast.build(t, opts)
		convectionOnly(ctxFast)
		setDt(ctxFast, 5.0)
		assert.NoError(t, ComputeLocalTimeStep(ctxFast))
		for c := 0; c < ctxFast.Mesh.NCells; c++ {
			assert.InDelta(t, wantBound/3.0, ctxFast.Dt.Values()[c], 1e-12)
			assert.Less(t, ctxFast.Dt.Values()[c], wantBound)
		}
	}
}

func TestLocalStep_BoundClipping(t *testing.T) {
	tc := testCase{nx: 3, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 1.0, mu: 0}
	opts := &Options{
		Policy: Local, CoMax: 1.0,
		DtMin: 0.05, DtMax: 0.08, GrowthRate: 10.0,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)

	// shrink four cell volumes: their Courant bound drops to 0.01,
	// under DtMin, while the remaining cells' 0.1 exceeds DtMax
	m := ctx.Mesh
	const nSmall = 4
	for c := 0; c < nSmall; c++ {
		m.CellVol[c] /= 10.0
	}

	setDt(ctx, 1.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	for c := 0; c < m.NCells; c++ {
		if c < nSmall {
			assert.Equal(t, opts.DtMin, ctx.Dt.Values()[c])
		} else {
			assert.Equal(t, opts.DtMax, ctx.Dt.Values()[c])
		}
	}
	// reported counts are the exact number of out-of-range cells in
	// each direction
	counts := ctx.Rep.Clips(ctx.Dt.Name)
	assert.Equal(t, nSmall, counts.NMin)
	assert.Equal(t, m.NCells-nSmall, counts.NMax)
}

func TestLocalStep_FourierBound(t *testing.T) {
	tc := testCase{nx: 3, ny: 3, nz: 3, dx: 0.1, u: 0, rho: 2.0, mu: 1e-2}
	opts := &Options{
		Policy: Local, FoMax: 10.0,
		DtMin: 1e-12, DtMax: 1e6, GrowthRate: 1e9,
	}
	ctx := tc.build(t, opts)
	eqp := field.DefaultEquationParam()
	eqp.Convection = false
	ctx.Fields.SetEquationParam(ctx.Vel, eqp)

	setDt(ctx, 1e3)
	assert.NoError(t, ComputeLocalTimeStep(ctx))

	// fully interior cell: six faces, each mu*A/d = mu*dx, symmetric
	// assembly counts each once per adjacent cell
	center := 13
	diag := 6 * tc.mu * tc.dx
	want := opts.FoMax * tc.rho * tc.dx * tc.dx * tc.dx / diag
	assert.InDelta(t, want, ctx.Dt.Values()[center], want*1e-12)
}

func TestAdaptiveStep_CollapsesToGlobalMin(t *testing.T) {
	tc := testCase{nx: 4, ny: 2, nz: 2, dx: 0.1, u: 2.0, rho: 1.0, mu: 0}
	opts := &Options{
		Policy: Adaptive, CoMax: 1.0,
		DtMin: 1e-9, DtMax: 10, GrowthRate: 100.0,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)

	// shrink one cell's volume: its Courant bound becomes the most
	// restrictive and the whole domain must follow it
	ctx.Mesh.CellVol[5] /= 8.0

	setDt(ctx, 5.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))

	wantBound := opts.CoMax * (tc.dx / 8.0) / tc.u
	dt := ctx.Dt.Values()
	for c := 0; c < ctx.Mesh.NCells; c++ {
		assert.InDelta(t, wantBound, dt[c], 1e-12)
	}
	// the negotiated step becomes the new reference
	assert.InDelta(t, wantBound, ctx.Time.DtRef, 1e-12)
}

func TestConstantStep_NoOp(t *testing.T) {
	tc := testCase{nx: 2, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 1.0, mu: 0}
	opts := &Options{Policy: Constant, CoMax: 1.0, DtMin: 1e-9, DtMax: 10}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)
	ctx.Rep.DefaultActive = false

	setDt(ctx, 0.123)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	for c := 0; c < ctx.Mesh.NCells; c++ {
		assert.Equal(t, 0.123, ctx.Dt.Values()[c])
	}
}

func TestSteadyStep_Relaxation(t *testing.T) {
	tc := testCase{nx: 4, ny: 3, nz: 2, dx: 0.1, u: 1.5, rho: 1.2, mu: 0}
	opts := &Options{Policy: Steady, DtMin: 1e-9, DtMax: 10}
	ctx := tc.build(t, opts)
	eqp := field.DefaultEquationParam()
	eqp.Diffusion = false
	eqp.RelaxV = 0.7
	ctx.Fields.SetEquationParam(ctx.Vel, eqp)

	// Dirichlet velocity blocks: the steady boundary coefficient is the
	// operator trace, which must vanish at the inlet
	for f := 0; f < ctx.Mesh.NBFaces; f++ {
		ctx.Vel.BC.B33[f] = [3][3]float64{}
	}

	setDt(ctx, 0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))

	// dt = relax * rho * V / (rho*u*A) = relax * dx / u
	want := 0.7 * tc.dx / tc.u
	for c := 0; c < ctx.Mesh.NCells; c++ {
		assert.InDelta(t, want, ctx.Dt.Values()[c], 1e-12)
	}
}

func TestThermalLimiter(t *testing.T) {
	tc := testCase{nx: 3, ny: 3, nz: 4, dx: 0.1, u: 0, rho: 0, mu: 0}
	opts := &Options{
		Policy: Local, ThermalLimiter: true,
		DtMin: 1e-9, DtMax: 1e6,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)
	ctx.Gravity = [3]float64{0, 0, -9.81}

	// density stratification decreasing upward: grad(rho).g > 0
	const rho0, slope = 10.0, 4.0
	m := ctx.Mesh
	rho := ctx.Rho.Values()
	for c := 0; c < m.NCellsExt; c++ {
		rho[c] = rho0 - slope*m.CellCen[c][2]
	}
	rhoB := ctx.RhoB.Values()
	for f := 0; f < m.NBFaces; f++ {
		rhoB[f] = rho0 - slope*m.BFaceCen[f][2]
	}

	setDt(ctx, 100.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	dt := ctx.Dt.Values()
	bound := make([]float64, m.NCells)
	for c := 0; c < m.NCells; c++ {
		bound[c] = 1.0 / math.Sqrt(9.81*slope/rho[c])
		assert.InDelta(t, bound[c], dt[c], bound[c]*1e-6)
	}
	assert.Equal(t, m.NCells, ctx.Rep.Clips("dt (clip/dtrho)").Clipped)

	{ // a previous step between the extrema clips exactly the cells
		// whose stratification bound it exceeds
		lo, hi := bound[0], bound[0]
		for _, b := range bound {
			lo, hi = math.Min(lo, b), math.Max(hi, b)
		}
		mid := 0.5 * (lo + hi)
		nOver := 0
		for _, b := range bound {
			if mid > b {
				nOver++
			}
		}
		assert.Greater(t, nOver, 0)
		assert.Less(t, nOver, m.NCells)

		setDt(ctx, mid)
		assert.NoError(t, ComputeLocalTimeStep(ctx))
		assert.Equal(t, nOver, ctx.Rep.Clips("dt (clip/dtrho)").Clipped)
	}
}

func TestVolumetricCourantOverride(t *testing.T) {
	// with a resolved void fraction the volumetric flux bounds the step
	// and the carrier density drops out entirely
	tc := testCase{nx: 3, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 250.0, mu: 0}
	opts := &Options{
		Policy: Local, CoMax: 0.8,
		DtMin: 1e-9, DtMax: 10, GrowthRate: 100.0,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)
	ctx.VOF = true

	m := ctx.Mesh
	reg := ctx.Fields
	voidF := reg.Add(FieldVoidFraction, 1, field.Cells, m.NCellsExt, 1)
	iFlux := reg.Add("void_fraction_inner_mass_flux", 1, field.InteriorFaces, m.NIFaces, 1)
	bFlux := reg.Add("void_fraction_boundary_mass_flux", 1, field.BoundaryFaces, m.NBFaces, 1)
	voidF.SetKeyInt(field.KeyInnerMassFlux, iFlux.ID)
	voidF.SetKeyInt(field.KeyBoundaryMassFlux, bFlux.ID)
	for f := 0; f < m.NIFaces; f++ {
		iFlux.Values()[f] = tc.u * m.IFaceNorm[f][0] * m.IFaceSurf[f]
	}
	for f := 0; f < m.NBFaces; f++ {
		bFlux.Values()[f] = tc.u * m.BFaceNorm[f][0] * m.BFaceSurf[f]
	}

	setDt(ctx, 5.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	want := opts.CoMax * tc.dx / tc.u
	for c := 0; c < m.NCells; c++ {
		assert.InDelta(t, want, ctx.Dt.Values()[c], 1e-12)
	}
}

// fixedStability is a compressible model with a uniform inverse time
// scale.
type fixedStability struct{ w float64 }

func (fs fixedStability) StabilityArray(wcf []float64) {
	for c := range wcf {
		wcf[c] = fs.w
	}
}

func TestCompressibleCFLBound(t *testing.T) {
	tc := testCase{nx: 2, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 1.0, mu: 0}
	opts := &Options{
		Policy: Local, CoMax: 1.0, CFLMax: 0.8,
		DtMin: 1e-9, DtMax: 10, GrowthRate: 100.0,
	}
	ctx := tc.build(t, opts)
	eqp := field.DefaultEquationParam()
	eqp.Convection = false
	eqp.Diffusion = false
	ctx.Fields.SetEquationParam(ctx.Vel, eqp)
	ctx.Compressible = fixedStability{w: 40.0}

	setDt(ctx, 5.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	want := opts.CFLMax / 40.0
	for c := 0; c < ctx.Mesh.NCells; c++ {
		assert.InDelta(t, want, ctx.Dt.Values()[c], 1e-12)
	}

	// the CFL field registered for the iteration log is wcf*dt
	cfl := ctx.Rep.Array("CFL / Mass")
	assert.Len(t, cfl, ctx.Mesh.NCells)
	assert.InDelta(t, opts.CFLMax, cfl[0], 1e-12)
}

func TestDisabledCellsDoNotBind(t *testing.T) {
	tc := testCase{nx: 4, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 1.0, mu: 0}
	opts := &Options{
		Policy: Adaptive, CoMax: 1.0,
		DtMin: 1e-9, DtMax: 10, GrowthRate: 100.0,
	}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)

	m := ctx.Mesh
	m.HasDisableFlag = true
	m.Disabled = make([]bool, m.NCellsExt)
	m.Disabled[0] = true
	// give the masked cell a tiny volume: were it active it would force
	// a far smaller uniform step
	m.CellVol[0] /= 1e6

	setDt(ctx, 5.0)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	want := opts.CoMax * tc.dx / tc.u
	for c := 0; c < m.NCells; c++ {
		assert.InDelta(t, want, ctx.Dt.Values()[c], 1e-12)
	}
}

// recordingHalo counts ghost synchronizations on a serial mesh.
type recordingHalo struct{ scalars, vectors int }

func (h *recordingHalo) SyncScalars(vals []float64, dim int) { h.scalars++ }
func (h *recordingHalo) SyncVectors(vals [][3]float64)       { h.vectors++ }

func TestGhostSyncAfterStep(t *testing.T) {
	tc := testCase{nx: 3, ny: 2, nz: 2, dx: 0.1, u: 1.0, rho: 1.0, mu: 0}
	opts := &Options{Policy: Local, CoMax: 1.0, DtMin: 1e-9, DtMax: 10, GrowthRate: 0.1}
	ctx := tc.build(t, opts)
	convectionOnly(ctx)

	halo := &recordingHalo{}
	ctx.Mesh.Halo = halo
	setDt(ctx, 1e-3)
	assert.NoError(t, ComputeLocalTimeStep(ctx))
	assert.Equal(t, 1, halo.scalars)
}

func TestEchoCoupler(t *testing.T) {
	dt, n := EchoCoupler{}.Sync(0.25, 3, 7)
	assert.Equal(t, 0.25, dt)
	assert.Equal(t, 7, n)
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "constant", Constant.String())
	assert.Equal(t, "adaptive uniform", Adaptive.String())
	assert.Equal(t, "local", Local.String())
	assert.Equal(t, "steady", Steady.String())
	assert.Equal(t, "unknown", Policy(42).String())
}
