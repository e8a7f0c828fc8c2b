package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/OpenTraceLab/gds2lef/pkg/lef"
)

// ErrConfig is returned for invalid configuration values or files.
var ErrConfig = errors.New("pipeline: invalid configuration")

// Config controls a conversion run.
type Config struct {
	// Fail the run when extraction or serialization produced any warning
	Strict bool `toml:"strict"`
	// Synthesis binary used to elaborate .v/.sv direction sources
	Yosys string `toml:"yosys"`

	LEF     LEFConfig     `toml:"lef"`
	Preview PreviewConfig `toml:"preview"`
}

// LEFConfig holds the fixed parts of the LEF output.
type LEFConfig struct {
	Version     string `toml:"version"`      // VERSION statement (default: 5.6)
	BusBitChars string `toml:"busbit_chars"` // BUSBITCHARS (default: [])
	Divider     string `toml:"divider"`      // DIVIDERCHAR (default: /)
	Class       string `toml:"class"`        // MACRO CLASS (default: CORE)
	Site        string `toml:"site"`         // SITE (default: CoreSite)
	Symmetry    string `toml:"symmetry"`     // SYMMETRY (default: X Y R90)

	// Port rectangles narrower or lower than this are dropped (default: 50)
	MinFeature int64 `toml:"min_feature"`
	// Database units per micron; 0 takes the value from the GDS UNITS record
	UnitsPerMicron float64 `toml:"units_per_micron"`
}

// PreviewConfig names optional preview files. Empty paths disable them.
type PreviewConfig struct {
	PDF string `toml:"pdf"`
	DXF string `toml:"dxf"`
}

// DefaultConfig returns a Config matching the classic output format.
func DefaultConfig() *Config {
	d := lef.DefaultOptions()
	return &Config{
		Strict: false,
		Yosys:  "yosys",
		LEF: LEFConfig{
			Version:        d.Version,
			BusBitChars:    d.BusBitChars,
			Divider:        d.Divider,
			Class:          d.Class,
			Site:           d.Site,
			Symmetry:       d.Symmetry,
			MinFeature:     d.MinFeature,
			UnitsPerMicron: 0,
		},
	}
}

// LoadConfig reads a TOML file over the defaults. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrConfig, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills empty fields with defaults and rejects negative sizes.
func (c *Config) Validate() error {
	d := DefaultConfig()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&c.Yosys, d.Yosys)
	fill(&c.LEF.Version, d.LEF.Version)
	fill(&c.LEF.BusBitChars, d.LEF.BusBitChars)
	fill(&c.LEF.Divider, d.LEF.Divider)
	fill(&c.LEF.Class, d.LEF.Class)
	fill(&c.LEF.Site, d.LEF.Site)
	fill(&c.LEF.Symmetry, d.LEF.Symmetry)

	if c.LEF.MinFeature < 0 {
		return fmt.Errorf("%w: min_feature must not be negative, got %d", ErrConfig, c.LEF.MinFeature)
	}
	if c.LEF.UnitsPerMicron < 0 {
		return fmt.Errorf("%w: units_per_micron must not be negative, got %g", ErrConfig, c.LEF.UnitsPerMicron)
	}
	if len(c.LEF.BusBitChars) != 2 {
		return fmt.Errorf("%w: busbit_chars needs two characters, got %q", ErrConfig, c.LEF.BusBitChars)
	}
	return nil
}

// lefOptions converts the LEF section for a layout with the given scale.
func (c *Config) lefOptions(unitsPerMicron float64) lef.Options {
	return lef.Options{
		Version:        c.LEF.Version,
		BusBitChars:    c.LEF.BusBitChars,
		Divider:        c.LEF.Divider,
		Class:          c.LEF.Class,
		Site:           c.LEF.Site,
		Symmetry:       c.LEF.Symmetry,
		MinFeature:     c.LEF.MinFeature,
		UnitsPerMicron: unitsPerMicron,
	}
}
