/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"runtime"

	"github.com/ghodss/yaml"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fvkit/fvtime/field"
	"github.com/fvkit/fvtime/mesh"
	"github.com/fvkit/fvtime/parallel"
	"github.com/fvkit/fvtime/timestep"
)

// CaseParameters is the YAML case file driving the march command.
type CaseParameters struct {
	Title string `yaml:"Title"`

	Nx int     `yaml:"Nx"`
	Ny int     `yaml:"Ny"`
	Nz int     `yaml:"Nz"`
	Dx float64 `yaml:"Dx"`
	Dy float64 `yaml:"Dy"`
	Dz float64 `yaml:"Dz"`

	Density   float64    `yaml:"Density"`
	Viscosity float64    `yaml:"Viscosity"`
	Velocity  [3]float64 `yaml:"Velocity"`
	Gravity   [3]float64 `yaml:"Gravity"`

	Policy         string  `yaml:"Policy"` // constant, adaptive, local, steady
	CoMax          float64 `yaml:"CoMax"`
	FoMax          float64 `yaml:"FoMax"`
	DtMin          float64 `yaml:"DtMin"`
	DtMax          float64 `yaml:"DtMax"`
	DtInit         float64 `yaml:"DtInit"`
	GrowthRate     float64 `yaml:"GrowthRate"`
	ThermalLimiter bool    `yaml:"ThermalLimiter"`

	Iterations int `yaml:"Iterations"`
}

func (cp *CaseParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, cp)
}

func (cp *CaseParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("[%d %d %d]\t\t= Mesh\n", cp.Nx, cp.Ny, cp.Nz)
	fmt.Printf("%8.5f\t\t= CoMax\n", cp.CoMax)
	fmt.Printf("%8.5f\t\t= FoMax\n", cp.FoMax)
	fmt.Printf("[%s]\t\t\t= Policy\n", cp.Policy)
	fmt.Printf("[%d]\t\t\t= Iterations\n", cp.Iterations)
}

func (cp *CaseParameters) policy() (timestep.Policy, error) {
	switch cp.Policy {
	case "constant", "":
		return timestep.Constant, nil
	case "adaptive":
		return timestep.Adaptive, nil
	case "local":
		return timestep.Local, nil
	case "steady":
		return timestep.Steady, nil
	}
	return 0, fmt.Errorf("unknown stepping policy %q", cp.Policy)
}

// marchCmd represents the march command
var marchCmd = &cobra.Command{
	Use:   "march",
	Short: "March the time step controller on a Cartesian demo case",
	Long: `
Reads a YAML case file, builds a uniform Cartesian mesh with a constant
carrier flow, and runs the local time step computation plus the
Courant/Fourier diagnostics for the requested number of iterations.`,
	Run: func(cmd *cobra.Command, args []string) {
		caseFile, _ := cmd.Flags().GetString("caseFile")
		if len(caseFile) == 0 {
			fmt.Println("error: must supply a case file (-c, --caseFile)")
			exampleFile := `
########################################
Title: "Channel demo"
Nx: 20
Ny: 10
Nz: 4
Dx: 0.05
Dy: 0.05
Dz: 0.05
Density: 1.2
Viscosity: 1.8e-5
Velocity: [1.0, 0.0, 0.0]
Policy: local     # constant, adaptive, local, steady
CoMax: 1.0
FoMax: 10.0
DtMin: 1.0e-6
DtMax: 0.5
DtInit: 1.0e-3
GrowthRate: 0.1
Iterations: 50
########################################
`
			fmt.Printf("Example File:%s\n", exampleFile)
			os.Exit(1)
		}
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start().Stop()
		}

		data, err := ioutil.ReadFile(caseFile)
		if err != nil {
			logrus.Fatalf("reading case file: %v", err)
		}
		cp := &CaseParameters{}
		if err = cp.Parse(data); err != nil {
			logrus.Fatalf("parsing case file: %v", err)
		}
		cp.Print()
		if err = RunCase(cp); err != nil {
			logrus.Fatalf("case failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(marchCmd)
	marchCmd.Flags().StringP("caseFile", "c", "", "YAML case file")
	marchCmd.Flags().Bool("profile", false, "write a CPU profile for the run")
}

// RunCase assembles the solver context for a case and marches it.
func RunCase(cp *CaseParameters) error {
	pol, err := cp.policy()
	if err != nil {
		return err
	}

	m := mesh.NewCartesian(cp.Nx, cp.Ny, cp.Nz, cp.Dx, cp.Dy, cp.Dz)
	reg := field.NewRegistry()
	setupFields(m, reg, cp)

	opts := &timestep.Options{
		Policy:         pol,
		CoMax:          cp.CoMax,
		FoMax:          cp.FoMax,
		DtMin:          cp.DtMin,
		DtMax:          cp.DtMax,
		GrowthRate:     cp.GrowthRate,
		ThermalLimiter: cp.ThermalLimiter,
	}
	ctx, err := timestep.NewContext(m, reg, opts)
	if err != nil {
		return err
	}
	ctx.Gravity = cp.Gravity
	ctx.NThreads = runtime.NumCPU()
	ctx.Rep = timestep.NewReporter(logrus.StandardLogger())
	ctx.Time.NtMax = cp.Iterations

	dt := ctx.Dt.Values()
	for c := range dt {
		dt[c] = cp.DtInit
	}

	iters := cp.Iterations
	if iters < 1 {
		iters = 1
	}
	for it := 1; it <= iters; it++ {
		ctx.Time.NtCur = it
		if err := timestep.ComputeLocalTimeStep(ctx); err != nil {
			return err
		}
		if err := timestep.ComputeCourantFourier(ctx); err != nil {
			return err
		}
		lo, hi := parallel.MinMaxLoc(dt, m.NCells)
		logrus.WithFields(logrus.Fields{
			"iteration": it,
			"dtMin":     lo.Value,
			"dtMax":     hi.Value,
		}).Info("time step computed")
		ctx.Time.TCur += lo.Value
	}
	return nil
}

// setupFields registers the carrier flow fields for the demo case:
// uniform density, viscosity and velocity, and the face mass fluxes
// derived from them.
func setupFields(m *mesh.Mesh, reg *field.Registry, cp *CaseParameters) {
	vel := reg.Add(timestep.FieldVelocity, 3, field.Cells, m.NCellsExt, 1)
	reg.Add(timestep.FieldPressure, 1, field.Cells, m.NCellsExt, 1)
	rho := reg.Add(timestep.FieldDensity, 1, field.Cells, m.NCellsExt, 1)
	rhoB := reg.Add(timestep.FieldBoundaryRho, 1, field.BoundaryFaces, m.NBFaces, 1)
	mu := reg.Add(timestep.FieldMolecularMu, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(timestep.FieldTurbulentMu, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(timestep.FieldDt, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(timestep.FieldCourant, 1, field.Cells, m.NCellsExt, 1)
	reg.Add(timestep.FieldFourier, 1, field.Cells, m.NCellsExt, 1)

	iFlux := reg.Add("velocity_inner_mass_flux", 1, field.InteriorFaces, m.NIFaces, 1)
	bFlux := reg.Add("velocity_boundary_mass_flux", 1, field.BoundaryFaces, m.NBFaces, 1)
	vel.SetKeyInt(field.KeyInnerMassFlux, iFlux.ID)
	vel.SetKeyInt(field.KeyBoundaryMassFlux, bFlux.ID)

	vv := vel.Values()
	for c := 0; c < m.NCellsExt; c++ {
		for x := 0; x < 3; x++ {
			vv[c*3+x] = cp.Velocity[x]
		}
		rho.Values()[c] = cp.Density
		mu.Values()[c] = cp.Viscosity
	}
	for f := 0; f < m.NBFaces; f++ {
		rhoB.Values()[f] = cp.Density
	}

	// velocity boundary operator: homogeneous Neumann blocks
	vel.BC = &field.BCCoeffs{
		B33:  make([][3][3]float64, m.NBFaces),
		Bf33: make([][3][3]float64, m.NBFaces),
	}
	for f := 0; f < m.NBFaces; f++ {
		for x := 0; x < 3; x++ {
			vel.BC.B33[f][x][x] = 1.0
		}
	}

	iv := iFlux.Values()
	for f := 0; f < m.NIFaces; f++ {
		un := cp.Velocity[0]*m.IFaceNorm[f][0] + cp.Velocity[1]*m.IFaceNorm[f][1] + cp.Velocity[2]*m.IFaceNorm[f][2]
		iv[f] = cp.Density * un * m.IFaceSurf[f]
	}
	bv := bFlux.Values()
	for f := 0; f < m.NBFaces; f++ {
		un := cp.Velocity[0]*m.BFaceNorm[f][0] + cp.Velocity[1]*m.BFaceNorm[f][1] + cp.Velocity[2]*m.BFaceNorm[f][2]
		bv[f] = cp.Density * un * m.BFaceSurf[f]
	}

	eqp := field.DefaultEquationParam()
	eqp.NSweeps = 2
	reg.SetEquationParam(vel, eqp)
}
