package source

import (
	"fmt"
	"math"

	"github.com/scigolib/gridextract/array"
)

// DerivedVariable is a variable computed per cell from other variables.
type DerivedVariable struct {
	Name    string
	Inputs  []string
	Combine array.CombineFunc
}

// Derived adds computed variables on top of another DataSource. Reads of
// a derived variable read every input over the same ranges and return a
// read-only view combining them on access. Other variables pass through.
type Derived struct {
	base    DataSource
	derived map[string]DerivedVariable
}

var _ DataSource = (*Derived)(nil)

// NewDerived wraps base with the given derived variables.
// Derived variables may use other derived variables as inputs.
func NewDerived(base DataSource, vars ...DerivedVariable) (*Derived, error) {
	d := &Derived{base: base, derived: make(map[string]DerivedVariable, len(vars))}
	for _, v := range vars {
		if v.Name == "" || len(v.Inputs) == 0 || v.Combine == nil {
			return nil, fmt.Errorf("derived variable %q needs a name, inputs and a combine function", v.Name)
		}
		if _, dup := d.derived[v.Name]; dup {
			return nil, fmt.Errorf("derived variable %q defined twice", v.Name)
		}
		d.derived[v.Name] = v
	}
	for name := range d.derived {
		if err := d.checkCycle(name, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Derived) checkCycle(name string, visiting map[string]bool) error {
	v, ok := d.derived[name]
	if !ok {
		return nil
	}
	if visiting[name] {
		return fmt.Errorf("derived variable %q depends on itself", name)
	}
	visiting[name] = true
	defer delete(visiting, name)
	for _, in := range v.Inputs {
		if err := d.checkCycle(in, visiting); err != nil {
			return err
		}
	}
	return nil
}

// DerivedOpener wraps every source opened by base.
func DerivedOpener(base Opener, vars ...DerivedVariable) Opener {
	return OpenerFunc(func() (DataSource, error) {
		src, err := base.Open()
		if err != nil {
			return nil, err
		}
		d, err := NewDerived(src, vars...)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		return d, nil
	})
}

// Read returns a lazy view for derived variables and delegates otherwise.
func (d *Derived) Read(variable string, t, z, y, x Range) (array.Block, error) {
	v, ok := d.derived[variable]
	if !ok {
		return d.base.Read(variable, t, z, y, x)
	}

	inputs := make([]array.Block, len(v.Inputs))
	for i, name := range v.Inputs {
		b, err := d.Read(name, t, z, y, x)
		if err != nil {
			return nil, readError(variable, fmt.Errorf("input %q: %w", name, err))
		}
		inputs[i] = b
	}
	view, err := array.NewLazy(v.Combine, inputs...)
	if err != nil {
		return nil, readError(variable, fmt.Errorf("%w: %w", ErrShapeMismatch, err))
	}
	return view, nil
}

// Close closes the wrapped source.
func (d *Derived) Close() error { return d.base.Close() }

// Magnitude combines vector components into their Euclidean norm, such as
// wind speed from u and v.
func Magnitude(values ...float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Direction returns the direction, in degrees clockwise from north, that
// a vector with eastward component u and northward component v points to.
func Direction(values ...float64) float64 {
	u, v := values[0], values[1]
	deg := math.Atan2(u, v) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
