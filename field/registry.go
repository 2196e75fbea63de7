package field

import "fmt"

// Well-known metadata keys.
const (
	KeyInnerMassFlux    = "inner_mass_flux_id"
	KeyBoundaryMassFlux = "boundary_mass_flux_id"
)

// Registry resolves fields to stable handles once at setup. IDs are
// dense and never reused, so collaborators can hold them for the whole
// run instead of re-looking-up by name every iteration.
type Registry struct {
	fields []*Field
	byName map[string]int
	params map[int]*EquationParam
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
		params: make(map[int]*EquationParam),
	}
}

// Add creates a field with nValues entries per component and the given
// number of time levels, and returns it. Adding a duplicate name panics:
// field creation happens once at setup and a clash is a programming
// error, not a runtime condition.
func (r *Registry) Add(name string, dim int, loc Location, nValues, timeLevels int) *Field {
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("field %q already registered", name))
	}
	if timeLevels < 1 {
		timeLevels = 1
	}
	f := &Field{
		ID:       len(r.fields),
		Name:     name,
		Dim:      dim,
		Location: loc,
	}
	for n := 0; n < timeLevels; n++ {
		f.vals = append(f.vals, make([]float64, dim*nValues))
	}
	r.fields = append(r.fields, f)
	r.byName[name] = f.ID
	return f
}

// ByID returns the field with the given handle.
func (r *Registry) ByID(id int) (*Field, error) {
	if id < 0 || id >= len(r.fields) {
		return nil, fmt.Errorf("field id %d: %w", id, ErrUnknownField)
	}
	return r.fields[id], nil
}

// ByName returns the named field or ErrUnknownField.
func (r *Registry) ByName(name string) (*Field, error) {
	if id, ok := r.byName[name]; ok {
		return r.fields[id], nil
	}
	return nil, fmt.Errorf("field %q: %w", name, ErrUnknownField)
}

// ByNameTry returns the named field or nil. Used for optional
// diagnostic fields whose absence simply disables a computation.
func (r *Registry) ByNameTry(name string) *Field {
	if id, ok := r.byName[name]; ok {
		return r.fields[id]
	}
	return nil
}

// SetEquationParam associates numerical scheme parameters with a field.
func (r *Registry) SetEquationParam(f *Field, eqp *EquationParam) {
	r.params[f.ID] = eqp
}

// EquationParam returns the scheme parameters for a field, or the
// defaults when the field has no associated transport equation.
func (r *Registry) EquationParam(f *Field) *EquationParam {
	if eqp, ok := r.params[f.ID]; ok {
		return eqp
	}
	return DefaultEquationParam()
}
