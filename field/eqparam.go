package field

// GradientMethod selects the cell gradient reconstruction scheme.
type GradientMethod int

const (
	GreenGaussIterative GradientMethod = iota
	LeastSquares
)

// FaceAverage selects how a cell diffusivity is averaged onto an
// interior face.
type FaceAverage int

const (
	ArithmeticAverage FaceAverage = iota
	HarmonicAverage
)

// EquationParam is the per-variable numerical scheme configuration.
// Created once at setup and read-only during time stepping.
type EquationParam struct {
	Convection    bool
	Diffusion     bool
	TurbDiffusion bool // include turbulent viscosity in diffusivity

	Gradient  GradientMethod
	NSweeps   int     // gradient reconstruction sweeps
	Epsilon   float64 // gradient iteration stop criterion
	ClipCoeff float64 // gradient limiter coefficient

	FaceVisc FaceAverage

	RelaxV float64 // steady pseudo-time relaxation factor

	Verbosity int
}

// DefaultEquationParam mirrors the solver defaults used for fields
// with no associated transport equation.
func DefaultEquationParam() *EquationParam {
	return &EquationParam{
		Convection: true,
		Diffusion:  true,
		Gradient:   GreenGaussIterative,
		NSweeps:    100,
		Epsilon:    1e-5,
		ClipCoeff:  1.5,
		RelaxV:     1.0,
	}
}
