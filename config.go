package gridextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scigolib/gridextract/cache"
	"github.com/scigolib/gridextract/strategy"
)

// StrategyAuto selects the read strategy per read.
const StrategyAuto = "auto"

// Config is a per-dataset read policy, usually loaded from YAML:
//
//	strategy: scanline          # pixel | bbox | scanline | auto
//	source_cost: high           # low | medium | high, used by auto
//	missing_value: NaN          # number or NaN
//	time_steps: 24
//	vertical_levels: 40
//	variables: [temp, salt]
//	mapper_cache:
//	  capacity: 64
//	  policy: lru               # lru | 2q
//	max_buffer_cells: 50000000  # auto: largest single read
//	waste_ratio: 4              # auto: bbox vs used cells
type Config struct {
	Strategy       string       `yaml:"strategy"`
	SourceCost     string       `yaml:"source_cost"`
	MissingValue   *Float       `yaml:"missing_value"`
	TimeSteps      int          `yaml:"time_steps"`
	VerticalLevels int          `yaml:"vertical_levels"`
	Variables      []string     `yaml:"variables"`
	MapperCache    *CacheConfig `yaml:"mapper_cache"`
	MaxBufferCells int          `yaml:"max_buffer_cells"`
	WasteRatio     float64      `yaml:"waste_ratio"`
}

// CacheConfig sizes the dataset's mapper cache.
type CacheConfig struct {
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"`
}

// Float is a float64 that also accepts NaN, Inf and -Inf in any case.
type Float float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Float) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	s := strings.TrimSpace(value.Value)
	switch strings.ToLower(s) {
	case ".nan":
		s = "nan"
	case ".inf", "+.inf":
		s = "inf"
	case "-.inf":
		s = "-inf"
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", value.Line, value.Value)
	}
	*f = Float(v)
	return nil
}

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig reads and validates a YAML policy file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML policy. Unknown keys are errors.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field. Zero values mean "default".
func (c *Config) Validate() error {
	if c.Strategy != "" && !strings.EqualFold(c.Strategy, StrategyAuto) {
		if _, err := strategy.ParseKind(c.Strategy); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := strategy.ParseSourceCost(c.SourceCost); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.TimeSteps < 0 {
		return fmt.Errorf("%w: time_steps must be positive, got %d", ErrInvalidConfig, c.TimeSteps)
	}
	if c.VerticalLevels < 0 {
		return fmt.Errorf("%w: vertical_levels must be positive, got %d", ErrInvalidConfig, c.VerticalLevels)
	}
	if c.MapperCache != nil {
		if c.MapperCache.Capacity < 1 {
			return fmt.Errorf("%w: mapper_cache.capacity must be positive, got %d", ErrInvalidConfig, c.MapperCache.Capacity)
		}
		if _, err := cache.ParsePolicy(c.MapperCache.Policy); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.MaxBufferCells < 0 {
		return fmt.Errorf("%w: max_buffer_cells must be positive, got %d", ErrInvalidConfig, c.MaxBufferCells)
	}
	if c.WasteRatio != 0 && c.WasteRatio < 1 {
		return fmt.Errorf("%w: waste_ratio must be at least 1, got %g", ErrInvalidConfig, c.WasteRatio)
	}
	return nil
}

// options translates a validated config into dataset options.
func (c *Config) options() []Option {
	var opts []Option
	switch {
	case strings.EqualFold(c.Strategy, StrategyAuto):
		cost, _ := strategy.ParseSourceCost(c.SourceCost)
		opts = append(opts, WithAutoStrategy(strategy.NewSelector(
			strategy.WithSourceCost(cost),
			strategy.WithMaxBufferCells(c.MaxBufferCells),
			strategy.WithWasteRatio(c.WasteRatio),
		)))
	case c.Strategy != "":
		kind, _ := strategy.ParseKind(c.Strategy)
		opts = append(opts, WithStrategy(kind))
	}
	if c.MissingValue != nil {
		opts = append(opts, WithMissingValue(float64(*c.MissingValue)))
	}
	if c.TimeSteps > 0 {
		opts = append(opts, WithTimeAxis(c.TimeSteps))
	}
	if c.VerticalLevels > 0 {
		opts = append(opts, WithVerticalAxis(c.VerticalLevels))
	}
	if len(c.Variables) > 0 {
		opts = append(opts, WithVariables(c.Variables...))
	}
	if c.MapperCache != nil {
		opts = append(opts, func(d *Dataset) error {
			policy, _ := cache.ParsePolicy(c.MapperCache.Policy)
			mc, err := cache.New(c.MapperCache.Capacity, policy)
			if err != nil {
				return err
			}
			d.mappers = mc
			return nil
		})
	}
	return opts
}
