package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/vrexport/pkg/config"
	"github.com/chazu/vrexport/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lampScript = `(object "Lamp" (node "LightOmni" "Omni" :intensity (cond (< frame 3) 1 2)))`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scene.vrx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, lampScript)
	outPath := filepath.Join(dir, "out", "scene.vrscene")

	_, err := run(t, "export", script, "-o", outPath, "--log-level", "error")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "LightOmni NTLamp@NOmni {")
}

func TestExportToStdoutAnimated(t *testing.T) {
	script := writeScript(t, t.TempDir(), lampScript)

	out, err := run(t, "export", script, "-o", "-", "--log-level", "error",
		"--animate", "--start", "1", "--end", "4", "--policy", "hash")
	require.NoError(t, err)
	assert.Contains(t, out, "SettingsOutput vrexportSettingsOutput {")
	assert.Contains(t, out, "intensity=interpolate((1, 1.0));")
	assert.Contains(t, out, "intensity=interpolate((2, 1.0));")
	assert.Contains(t, out, "intensity=interpolate((3, 2.0));")
	assert.NotContains(t, out, "interpolate((4, ")
}

func TestExportBadPolicy(t *testing.T) {
	script := writeScript(t, t.TempDir(), lampScript)
	_, err := run(t, "export", script, "-o", "-", "--policy", "often")
	assert.Error(t, err)
}

func TestExportScriptError(t *testing.T) {
	script := writeScript(t, t.TempDir(), `(node "Teapot")`)
	_, err := run(t, "export", script, "-o", "-", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teapot")
}

func TestExportMissingScript(t *testing.T) {
	_, err := run(t, "export", filepath.Join(t.TempDir(), "nope.vrx"), "-o", "-")
	assert.Error(t, err)
}

func TestExportWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, lampScript)
	outPath := filepath.Join(dir, "from-config.vrscene")
	cfgPath := filepath.Join(dir, "vrexport.yaml")

	cfg := config.Default()
	cfg.Output = outPath
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Save(cfgPath))

	_, err := run(t, "export", script, "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, outPath)
}

func TestValidateCommand(t *testing.T) {
	script := writeScript(t, t.TempDir(), lampScript)
	out, err := run(t, "validate", script, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entities, 1 trees, 0 errors")
}

func TestValidateReportsScriptErrors(t *testing.T) {
	eng := engine.NewEngine(engine.Options{Logger: quietLogger()})
	var buf bytes.Buffer
	err := validate(eng, `(object "Lamp" (node "LightOmni" "A" :wattage 3))`, 1, &buf)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, buf.String(), "script: ")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vrexport.toml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	_, err = run(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")
	_, err = run(t, "config", "init", path, "--force")
	assert.NoError(t, err)

	out, err = run(t, "config", "show", "--config", path, "-o", "elsewhere.vrscene")
	require.NoError(t, err)
	assert.Contains(t, out, "elsewhere.vrscene")
	assert.Contains(t, out, "[animation]")
}

func TestWatchReexportsOnChange(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, lampScript)
	outPath := filepath.Join(dir, "watched.vrscene")

	cfg := config.Default()
	cfg.Output = outPath

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan error, 8)
	stopped := make(chan error, 1)
	go func() {
		stopped <- watch(ctx, cfg, quietLogger(), script, func(err error) { results <- err })
	}()

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("initial export did not run")
	}

	require.NoError(t, os.WriteFile(script,
		[]byte(`(object "Panel" (node "LightRectangle" "Rect" :u_size 2))`), 0o644))

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger an export")
	}
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "LightRectangle NTPanel@NRect {"), string(data))

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// TestTurntableExample exports the bundled example the way its header
// comment suggests.
func TestTurntableExample(t *testing.T) {
	out, err := run(t, "export", "../../examples/turntable.vrx", "-o", "-",
		"--log-level", "error", "--animate", "--end", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "TexChecker NTBox@GWarm@NChecker {")
	assert.Contains(t, out, "GeomStaticMesh NTBox@NBox {")
	assert.Contains(t, out, "Node OBBox {")
	// The box turns every frame; the untouched light is written once.
	assert.Equal(t, 3, strings.Count(out, "Node OBBox {"))
	assert.Equal(t, 1, strings.Count(out, "LightOmni NTKey@NOmni {"))
}
