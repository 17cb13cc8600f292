package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/vrexport/pkg/animcache"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, animcache.PolicyHash, cfg.Animation.Policy)
	assert.Equal(t, 16, cfg.Format.HexThreshold)
	assert.Equal(t, []int{1}, cfg.Animation.Frames())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "vrexport.toml", `
output = "/tmp/out.vrscene"
strict_names = true
workers = 3

[animation]
enabled = true
start = 1
end = 10
step = 3
policy = "both"

[format]
compact_transforms = true
hex_threshold = 8

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out.vrscene", cfg.Output)
	assert.True(t, cfg.StrictNames)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, animcache.PolicyBoth, cfg.Animation.Policy)
	assert.Equal(t, []int{1, 4, 7, 10}, cfg.Animation.Frames())
	assert.True(t, cfg.Format.CompactTransforms)
	assert.Equal(t, 8, cfg.Format.Formatter().HexThreshold)

	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	// Unset fields keep their defaults.
	assert.Equal(t, Default().MeshCells, cfg.MeshCells)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "vrexport.yaml", `
output: scene.vrscene
animation:
  enabled: true
  start: 0
  end: 2
  step: 1
  policy: simple
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, animcache.PolicySimple, cfg.Animation.Policy)
	assert.Equal(t, []int{0, 1, 2}, cfg.Animation.Frames())
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	path := writeFile(t, "vrexport.yml", "output: ~/renders/scene.vrscene\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "renders", "scene.vrscene"), cfg.Output)
}

func TestLoadStdoutOutput(t *testing.T) {
	path := writeFile(t, "vrexport.toml", `output = "-"`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "-", cfg.Output)
}

func TestLoadUnknownFormat(t *testing.T) {
	path := writeFile(t, "vrexport.ini", "output=x\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadBadPolicy(t *testing.T) {
	path := writeFile(t, "vrexport.toml", "[animation]\npolicy = \"sometimes\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty output", func(c *Config) { c.Output = "" }, "output path"},
		{"zero step", func(c *Config) { c.Animation.Enabled = true; c.Animation.Step = 0 }, "step"},
		{"reversed range", func(c *Config) { c.Animation.Enabled = true; c.Animation.End = 0 }, "before start"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"out.toml", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Animation.Enabled = true
			cfg.Animation.End = 5
			cfg.Animation.Policy = animcache.PolicySimple
			cfg.StrictNames = true

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}
