package timestep

import (
	"fmt"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
	"github.com/fvkit/fvtime/parallel"
)

// Well-known field names resolved at context construction.
const (
	FieldVelocity     = "velocity"
	FieldPressure     = "pressure"
	FieldDensity      = "density"
	FieldBoundaryRho  = "boundary_density"
	FieldMolecularMu  = "molecular_viscosity"
	FieldTurbulentMu  = "turbulent_viscosity"
	FieldDt           = "dt"
	FieldVoidFraction = "void_fraction"

	FieldCourant       = "courant_number"
	FieldFourier       = "fourier_number"
	FieldVolumeCourant = "volume_courant_number"
)

// CompressibleModel supplies the density-positivity stability array of
// the compressible discretization. Nil means the flow is incompressible.
type CompressibleModel interface {
	// StabilityArray fills wcf (sized for ghost-extended cells) with
	// the per-cell inverse stability time scale.
	StabilityArray(wcf []float64)
}

// Context aggregates every collaborator the estimator reads, replacing
// the ambient solver globals with explicit dependencies.
type Context struct {
	Mesh   *mesh.Mesh
	Fields *field.Registry
	Opts   *Options
	Time   *TimeState

	Gravity [3]float64

	Compressible CompressibleModel
	VOF          bool

	Comm     parallel.Comm
	Coupler  Coupler
	Rep      *Reporter
	NThreads int

	// handles resolved once at setup
	Vel, P, Rho, RhoB, ViscL, ViscT, Dt *field.Field
}

// NewContext resolves the well-known fields and fills in serial
// defaults for the optional collaborators.
func NewContext(m *mesh.Mesh, reg *field.Registry, opts *Options) (*Context, error) {
	ctx := &Context{
		Mesh:     m,
		Fields:   reg,
		Opts:     opts,
		Time:     &TimeState{NtMax: 1},
		Comm:     parallel.SingleRank{},
		Coupler:  EchoCoupler{},
		Rep:      NewReporter(nil),
		NThreads: 1,
	}
	var err error
	resolve := func(name string) *field.Field {
		if err != nil {
			return nil
		}
		var f *field.Field
		f, err = reg.ByName(name)
		return f
	}
	ctx.Vel = resolve(FieldVelocity)
	ctx.P = resolve(FieldPressure)
	ctx.Rho = resolve(FieldDensity)
	ctx.RhoB = resolve(FieldBoundaryRho)
	ctx.ViscL = resolve(FieldMolecularMu)
	ctx.ViscT = resolve(FieldTurbulentMu)
	ctx.Dt = resolve(FieldDt)
	if err != nil {
		return nil, fmt.Errorf("time step context: %w", err)
	}
	return ctx, nil
}

// MassFlux returns the interior and boundary mass flux arrays
// associated with a transported field through its metadata keys.
func (ctx *Context) MassFlux(f *field.Field) (iFlux, bFlux []float64, err error) {
	iID, err := f.KeyInt(field.KeyInnerMassFlux)
	if err != nil {
		return nil, nil, err
	}
	bID, err := f.KeyInt(field.KeyBoundaryMassFlux)
	if err != nil {
		return nil, nil, err
	}
	fi, err := ctx.Fields.ByID(iID)
	if err != nil {
		return nil, nil, err
	}
	fb, err := ctx.Fields.ByID(bID)
	if err != nil {
		return nil, nil, err
	}
	return fi.Values(), fb.Values(), nil
}
