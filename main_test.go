package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GPU_render_layer/config"
)

const testConfig = `
window:
  title: "flag test"
render:
  frames_in_flight: 2
logging:
  level: "warn"
  console: false
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var got *config.Config
	cmd := newRootCmd(func(cfg *config.Config) error {
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return got, cmd.Execute()
}

func TestRootCmdUsesConfigFile(t *testing.T) {
	cfg, err := execute(t, "--config", writeConfig(t))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "flag test", cfg.Window.Title)
	assert.Equal(t, 2, cfg.Render.FramesInFlight)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, config.WINDOW_WIDTH, cfg.Window.Width, "unset keys keep their defaults")
}

func TestRootCmdFlagsOverrideConfig(t *testing.T) {
	cfg, err := execute(t, "--config", writeConfig(t), "--frames-in-flight", "3", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Render.FramesInFlight)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestRootCmdRejectsInvalidFlags(t *testing.T) {
	path := writeConfig(t)
	for _, args := range [][]string{
		{"--frames-in-flight", "0"},
		{"--frames-in-flight", "9"},
		{"--log-level", "loud"},
	} {
		cfg, err := execute(t, append([]string{"--config", path}, args...)...)
		assert.Error(t, err, "%v", args)
		assert.Nil(t, cfg, "run is not reached for %v", args)
	}
}

func TestRootCmdMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}
