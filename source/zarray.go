package source

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetaKey is the key suffix of a variable's array metadata.
const MetaKey = ".zarray"

// Fill values that JSON cannot express as numbers.
const (
	FillValueNaN              = "NaN"
	FillValueInfinity         = "Infinity"
	FillValueNegativeInfinity = "-Infinity"
)

// CompressorMeta identifies the codec of every chunk.
type CompressorMeta struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// ArrayMeta describes a chunked array: its shape, chunk shape, element
// type and codec.
type ArrayMeta struct {
	ZarrFormat int             `json:"zarr_format"`
	Shape      []int           `json:"shape"`
	Chunks     []int           `json:"chunks"`
	Dtype      string          `json:"dtype"`
	Compressor *CompressorMeta `json:"compressor"`
	// FillValue is a number, one of the FillValue* strings, or nil (NaN).
	FillValue interface{} `json:"fill_value"`
	// Order must be "C": the last dimension varies fastest.
	Order              string `json:"order"`
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

// ParseArrayMeta decodes and validates array metadata.
func ParseArrayMeta(data []byte) (*ArrayMeta, error) {
	m := &ArrayMeta{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decoding array metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks shape, chunks, dtype and order.
func (m *ArrayMeta) Validate() error {
	if len(m.Shape) < 2 || len(m.Shape) > 4 {
		return fmt.Errorf("%w: %d dimensions, want 2 to 4", ErrShapeMismatch, len(m.Shape))
	}
	if len(m.Chunks) != len(m.Shape) {
		return fmt.Errorf("%w: %d chunk dimensions for %d array dimensions", ErrShapeMismatch, len(m.Chunks), len(m.Shape))
	}
	for d := range m.Shape {
		if m.Shape[d] < 1 || m.Chunks[d] < 1 {
			return fmt.Errorf("%w: dimension %d has shape %d, chunk %d", ErrShapeMismatch, d, m.Shape[d], m.Chunks[d])
		}
	}
	if m.Order != "" && m.Order != "C" {
		return fmt.Errorf("unsupported order %q", m.Order)
	}
	if _, err := ParseDtype(m.Dtype); err != nil {
		return err
	}
	_, err := m.Fill()
	return err
}

// Fill returns the fill value as float64.
func (m *ArrayMeta) Fill() (float64, error) {
	switch v := m.FillValue.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return v, nil
	case string:
		switch v {
		case FillValueNaN:
			return math.NaN(), nil
		case FillValueInfinity:
			return math.Inf(1), nil
		case FillValueNegativeInfinity:
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("invalid fill value %q", v)
	default:
		return 0, fmt.Errorf("invalid fill value %v", v)
	}
}

func (m *ArrayMeta) separator() string {
	if m.DimensionSeparator == "" {
		return "."
	}
	return m.DimensionSeparator
}

// chunkKey returns the store key of the chunk at grid coordinates coords.
func (m *ArrayMeta) chunkKey(variable string, coords []int) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return variable + "/" + strings.Join(parts, m.separator())
}

// Dtype is a numeric element type in NumPy typestr form, such as "<f8".
type Dtype struct {
	Order binary.ByteOrder
	Kind  byte // 'f', 'i' or 'u'
	Size  int  // bytes
}

// ParseDtype parses a typestr: byte order ('<', '>' or '|'), kind and size.
func ParseDtype(s string) (Dtype, error) {
	var dt Dtype
	if len(s) < 3 {
		return dt, fmt.Errorf("invalid dtype %q", s)
	}
	switch s[0] {
	case '<', '|':
		dt.Order = binary.LittleEndian
	case '>':
		dt.Order = binary.BigEndian
	default:
		return dt, fmt.Errorf("unsupported byte order in dtype %q", s)
	}
	dt.Kind = s[1]
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return dt, fmt.Errorf("invalid dtype size in %q: %w", s, err)
	}
	dt.Size = size

	switch {
	case dt.Kind == 'f' && (size == 4 || size == 8):
	case (dt.Kind == 'i' || dt.Kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	default:
		return dt, fmt.Errorf("unsupported dtype %q", s)
	}
	return dt, nil
}

// Decode converts raw chunk bytes into values.
func (dt Dtype) Decode(b []byte) ([]float64, error) {
	if len(b)%dt.Size != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of element size %d", len(b), dt.Size)
	}
	out := make([]float64, len(b)/dt.Size)
	for i := range out {
		e := b[i*dt.Size : (i+1)*dt.Size]
		switch dt.Kind {
		case 'f':
			if dt.Size == 4 {
				out[i] = float64(math.Float32frombits(dt.Order.Uint32(e)))
			} else {
				out[i] = math.Float64frombits(dt.Order.Uint64(e))
			}
		case 'i':
			out[i] = float64(dt.signed(e))
		default:
			out[i] = float64(dt.unsigned(e))
		}
	}
	return out, nil
}

func (dt Dtype) unsigned(e []byte) uint64 {
	switch dt.Size {
	case 1:
		return uint64(e[0])
	case 2:
		return uint64(dt.Order.Uint16(e))
	case 4:
		return uint64(dt.Order.Uint32(e))
	default:
		return dt.Order.Uint64(e)
	}
}

func (dt Dtype) signed(e []byte) int64 {
	switch dt.Size {
	case 1:
		return int64(int8(e[0]))
	case 2:
		return int64(int16(dt.Order.Uint16(e)))
	case 4:
		return int64(int32(dt.Order.Uint32(e)))
	default:
		return int64(dt.Order.Uint64(e))
	}
}

// Encode converts values into raw chunk bytes. Integer kinds truncate.
func (dt Dtype) Encode(values []float64) []byte {
	b := make([]byte, len(values)*dt.Size)
	for i, v := range values {
		e := b[i*dt.Size : (i+1)*dt.Size]
		switch {
		case dt.Kind == 'f' && dt.Size == 4:
			dt.Order.PutUint32(e, math.Float32bits(float32(v)))
		case dt.Kind == 'f':
			dt.Order.PutUint64(e, math.Float64bits(v))
		case dt.Kind == 'i':
			dt.putUnsigned(e, uint64(int64(v)))
		default:
			dt.putUnsigned(e, uint64(v))
		}
	}
	return b
}

func (dt Dtype) putUnsigned(e []byte, u uint64) {
	switch dt.Size {
	case 1:
		e[0] = byte(u)
	case 2:
		dt.Order.PutUint16(e, uint16(u))
	case 4:
		dt.Order.PutUint32(e, uint32(u))
	default:
		dt.Order.PutUint64(e, u)
	}
}
