package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	{ // add and resolve
		v := reg.Add("velocity", 3, Cells, 10, 2)
		p := reg.Add("pressure", 1, Cells, 10, 1)
		assert.Equal(t, 0, v.ID)
		assert.Equal(t, 1, p.ID)
		assert.Len(t, v.Values(), 30)
		assert.Len(t, p.Values(), 10)

		got, err := reg.ByName("velocity")
		assert.NoError(t, err)
		assert.Same(t, v, got)
		got, err = reg.ByID(1)
		assert.NoError(t, err)
		assert.Same(t, p, got)
	}
	{ // unknown lookups surface the sentinel
		_, err := reg.ByName("enthalpy")
		assert.True(t, errors.Is(err, ErrUnknownField))
		_, err = reg.ByID(99)
		assert.True(t, errors.Is(err, ErrUnknownField))
		assert.Nil(t, reg.ByNameTry("enthalpy"))
	}
	{ // duplicate registration is a setup bug
		assert.Panics(t, func() { reg.Add("velocity", 3, Cells, 10, 1) })
	}
}

func TestField_TimeLevels(t *testing.T) {
	reg := NewRegistry()
	v := reg.Add("velocity", 1, Cells, 4, 2)
	p := reg.Add("pressure", 1, Cells, 4, 1)

	assert.Equal(t, 2, v.TimeLevels())
	assert.Equal(t, 1, p.TimeLevels())

	{ // previous values only exist with two levels
		_, err := p.PreviousValues()
		assert.True(t, errors.Is(err, ErrNoPreviousState))
		assert.Contains(t, err.Error(), "pressure")

		prev, err := v.PreviousValues()
		assert.NoError(t, err)
		assert.Len(t, prev, 4)
	}
	{ // push copies current onto the shadow
		cur := v.Values()
		cur[2] = 7.5
		v.PushTimeLevel()
		prev, _ := v.PreviousValues()
		assert.Equal(t, 7.5, prev[2])
		cur[2] = 1.0
		assert.Equal(t, 7.5, prev[2])

		p.PushTimeLevel() // no-op, must not panic
	}
}

func TestField_Keys(t *testing.T) {
	reg := NewRegistry()
	v := reg.Add("velocity", 3, Cells, 4, 1)
	flux := reg.Add("inner_mass_flux", 1, InteriorFaces, 12, 1)

	_, err := v.KeyInt(KeyInnerMassFlux)
	assert.True(t, errors.Is(err, ErrUnknownKey))

	v.SetKeyInt(KeyInnerMassFlux, flux.ID)
	id, err := v.KeyInt(KeyInnerMassFlux)
	assert.NoError(t, err)
	assert.Equal(t, flux.ID, id)
}

func TestEquationParamDefaults(t *testing.T) {
	reg := NewRegistry()
	v := reg.Add("velocity", 3, Cells, 4, 1)
	p := reg.Add("pressure", 1, Cells, 4, 1)

	// unconfigured fields get the solver defaults
	eqp := reg.EquationParam(p)
	assert.True(t, eqp.Convection)
	assert.True(t, eqp.Diffusion)
	assert.Equal(t, GreenGaussIterative, eqp.Gradient)
	assert.Equal(t, 100, eqp.NSweeps)

	custom := DefaultEquationParam()
	custom.Diffusion = false
	custom.RelaxV = 0.7
	reg.SetEquationParam(v, custom)
	assert.Same(t, custom, reg.EquationParam(v))
	assert.False(t, reg.EquationParam(v).Diffusion)
}
