// Package config loads exporter settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/chazu/vrexport/pkg/kernel/sdfx"
	"github.com/chazu/vrexport/pkg/record"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for config files that are neither TOML nor
// YAML by extension.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Config holds everything an export run needs besides the scene itself.
type Config struct {
	// Output is the scene file written by export. "-" writes to stdout.
	Output string `toml:"output" yaml:"output"`

	Animation Animation `toml:"animation" yaml:"animation"`
	Format    Format    `toml:"format" yaml:"format"`

	// StrictNames makes two different records with one name an error.
	StrictNames bool `toml:"strict_names" yaml:"strict_names"`

	// Workers bounds mesh tessellation concurrency. Zero uses GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`

	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int `toml:"mesh_cells" yaml:"mesh_cells"`

	Log Log `toml:"log" yaml:"log"`
}

// Animation configures frame ranges and keyframe policy.
type Animation struct {
	Enabled bool             `toml:"enabled" yaml:"enabled"`
	Start   int              `toml:"start" yaml:"start"`
	End     int              `toml:"end" yaml:"end"`
	Step    int              `toml:"step" yaml:"step"`
	Policy  animcache.Policy `toml:"policy" yaml:"policy"`
}

// Frames returns the frames of the range in order.
func (a Animation) Frames() []int {
	if !a.Enabled {
		return []int{a.Start}
	}
	var frames []int
	for f := a.Start; f <= a.End; f += a.Step {
		frames = append(frames, f)
	}
	return frames
}

// Format controls how attribute values are written.
type Format struct {
	CompactTransforms bool `toml:"compact_transforms" yaml:"compact_transforms"`
	HexThreshold      int  `toml:"hex_threshold" yaml:"hex_threshold"`
	PlainHex          bool `toml:"plain_hex" yaml:"plain_hex"`
}

// Formatter returns the record formatter for f.
func (f Format) Formatter() record.Formatter {
	return record.Formatter{
		HexThreshold:      f.HexThreshold,
		CompactTransforms: f.CompactTransforms,
		PlainHex:          f.PlainHex,
	}
}

// Log selects the slog handler.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Output: "scene.vrscene",
		Animation: Animation{
			Start:  1,
			End:    1,
			Step:   1,
			Policy: animcache.PolicyHash,
		},
		Format:    Format{HexThreshold: record.DefaultHexThreshold},
		MeshCells: sdfx.DefaultMeshCells,
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result. The format
// follows the extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
	}

	if cfg.Output != "-" {
		if cfg.Output, err = homedir.Expand(cfg.Output); err != nil {
			return nil, fmt.Errorf("config: output: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes c as TOML or YAML, chosen by the file extension ext.
func (c *Config) Marshal(ext string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(ext) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return data, nil
}

// Save writes c to path in the format its extension names.
func (c *Config) Save(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := c.Marshal(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var errs []error
	if c.Output == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if a := c.Animation; a.Enabled {
		if a.Step < 1 {
			errs = append(errs, fmt.Errorf("animation step %d must be at least 1", a.Step))
		}
		if a.End < a.Start {
			errs = append(errs, fmt.Errorf("animation end %d is before start %d", a.End, a.Start))
		}
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d is negative", c.Workers))
	}
	if c.MeshCells < 0 {
		errs = append(errs, fmt.Errorf("mesh cells %d is negative", c.MeshCells))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q is not text or json", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
