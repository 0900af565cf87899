package grid

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom/proj"
)

// LonLatDef is the proj4 definition of geographic WGS84 coordinates.
const LonLatDef = "+proj=longlat +datum=WGS84 +no_defs"

// crsEqualDigits is the number of significant digits compared when two
// parsed spatial references are tested for equality.
const crsEqualDigits = 8

// CRS is a parsed coordinate reference system.
type CRS struct {
	def string
	sr  *proj.SR
}

// ParseCRS parses a proj4 definition string.
func ParseCRS(def string) (*CRS, error) {
	def = strings.TrimSpace(def)
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("parsing CRS %q: %w", def, err)
	}
	return &CRS{def: def, sr: sr}, nil
}

// LonLat returns the geographic WGS84 CRS.
func LonLat() *CRS {
	c, err := ParseCRS(LonLatDef)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the definition the CRS was parsed from.
func (c *CRS) String() string {
	if c == nil {
		return "<unspecified>"
	}
	return c.def
}

// Equal reports whether c and o describe the same CRS.
// Two unspecified (nil) CRSs are equal; an unspecified CRS is not equal to a specified one.
func (c *CRS) Equal(o *CRS) bool {
	switch {
	case c == nil || o == nil:
		return c == nil && o == nil
	case c == o || c.def == o.def:
		return true
	default:
		return c.sr.Equal(o.sr, crsEqualDigits)
	}
}

// Transform converts a position from one CRS to another.
type Transform func(p Position) (Position, error)

// Identity is the transform between equal CRSs.
func Identity(p Position) (Position, error) { return p, nil }

// TransformTo returns the transform from c to dst.
// Equal or unspecified CRSs yield Identity.
func (c *CRS) TransformTo(dst *CRS) (Transform, error) {
	if c == nil || dst == nil || c.Equal(dst) {
		return Identity, nil
	}
	t, err := c.sr.NewTransform(dst.sr)
	if err != nil {
		return nil, fmt.Errorf("creating transform %s -> %s: %w", c, dst, err)
	}
	return func(p Position) (Position, error) {
		x, y, err := t(p.X, p.Y)
		if err != nil {
			return Position{}, err
		}
		return Position{X: x, Y: y}, nil
	}, nil
}
