// Package timestep implements the adaptive time-step control loop of
// the solver: per-cell candidate steps bounded by Courant, Fourier,
// compressible-CFL and thermal constraints, merged, smoothed and
// clipped into the dt field the equation solvers consume.
package timestep

// Policy is the time stepping policy.
type Policy int

const (
	// Constant keeps a fixed reference step; the controller only runs
	// when diagnostics demand it.
	Constant Policy = iota
	// Adaptive varies the step in time but keeps it uniform in space:
	// every candidate field is collapsed to its global minimum.
	Adaptive
	// Local varies the step both in time and per cell.
	Local
	// Steady advances no physical time; dt becomes a per-cell
	// pseudo-relaxation coefficient.
	Steady
)

func (p Policy) String() string {
	switch p {
	case Constant:
		return "constant"
	case Adaptive:
		return "adaptive uniform"
	case Local:
		return "local"
	case Steady:
		return "steady"
	}
	return "unknown"
}

// epsZero floors operator diagonals and other denominators.
const epsZero = 1e-12

// Options is the process-wide time step configuration, mutated only at
// setup and read during every stability evaluation.
type Options struct {
	Policy Policy

	CoMax  float64 // target Courant ceiling; <= 0 disables
	FoMax  float64 // target Fourier ceiling; <= 0 disables
	CFLMax float64 // compressible density-positivity CFL ceiling

	DtMin, DtMax float64

	// GrowthRate damps time step increase: a cell may grow at most by
	// a factor 1+GrowthRate per iteration while decrease is immediate.
	GrowthRate float64

	// ThermalLimiter bounds the step by the internal-wave time scale
	// 1/sqrt(max(0+, grad(rho).g / rho)).
	ThermalLimiter bool
}

// TimeState tracks the outer iteration of the run.
type TimeState struct {
	NtCur  int // current iteration
	NtMax  int // last iteration to compute
	NtPrev int // iteration count of the previous run segment
	TCur   float64
	DtRef  float64
}

// UpdateDt applies a negotiated uniform step as the new reference.
func (ts *TimeState) UpdateDt(dt float64) { ts.DtRef = dt }
