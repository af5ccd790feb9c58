package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/frequency-optimizer/internal/noise"
	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
  workers: 2
storage:
  dataDirectory: /tmp/runs
  archive: true
scatteringTable: ampratios.yaml
pulsars:
  - name: J1909-3744
    scatteringTime: 0
    decorrelationTime: 1000
    weff: 100
    w50: 110
    sweep:
      minFrequency: 0.3
      maxFrequency: 3
      nchan: 20
      masks:
        - [1.1, 1.3]
  - name: J0030+0451
    decorrelationBandwidth: 50
    weff: 100
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, config.Settings.LogLevel)
	assert.Equal(t, 2, config.Settings.Workers)
	assert.True(t, config.Storage.Archive)
	assert.Equal(t, defaultDatabase, config.Storage.database())
	require.Len(t, config.Pulsars, 2)

	first := config.Pulsars[0]
	assert.Equal(t, "J1909-3744", first.Profile.Name)
	assert.Equal(t, 1000.0, first.Profile.DecorrelationTime)
	assert.Equal(t, noise.DefaultC1, first.Profile.C1, "omitted profile keys keep defaults")
	assert.Equal(t, 0.3, first.Sweep.MinFrequency)
	assert.Equal(t, 20, first.Sweep.NChan)
	assert.True(t, first.Sweep.Log, "omitted sweep keys keep defaults")
	assert.Equal(t, []noise.Mask{{Min: 1.1, Max: 1.3}}, first.Sweep.Masks)

	second := config.Pulsars[1]
	assert.Equal(t, sweep.DefaultConfig(), second.Sweep, "missing sweep block uses defaults")
	assert.True(t, config.NeedsScatteringTable(), "a decorrelation bandwidth implies scattering")
}

func TestLoadConfig_DefaultLogLevel(t *testing.T) {
	path := writeConfig(t, `
pulsars:
  - name: J1909-3744
    scatteringTime: 0
    weff: 100
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, config.Settings.LogLevel)
	assert.False(t, config.NeedsScatteringTable())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		config bool
	}{
		{
			name: "no pulsars",
			body: `settings: {workers: 1}`,
		},
		{
			name: "negative workers",
			body: `
settings: {workers: -1}
pulsars: [{name: a, scatteringTime: 0, weff: 100}]
`,
		},
		{
			name:   "missing name",
			body:   `pulsars: [{scatteringTime: 0}]`,
			config: true,
		},
		{
			name:   "both scattering variants",
			body:   `pulsars: [{name: a, scatteringTime: 1, decorrelationBandwidth: 2, weff: 100}]`,
			config: true,
		},
		{
			name: "duplicate names",
			body: `pulsars: [{name: a, scatteringTime: 0, weff: 100}, {name: a, scatteringTime: 0, weff: 100}]`,
		},
		{
			name: "invalid sweep",
			body: `pulsars: [{name: a, scatteringTime: 0, weff: 100, sweep: {minFrequency: 2, maxFrequency: 1}}]`,
		},
		{
			name:   "scattered without table",
			body:   `pulsars: [{name: a, scatteringTime: 0.5, weff: 100}]`,
			config: true,
		},
		{
			name:   "missing weff",
			body:   `pulsars: [{name: a, scatteringTime: 0}]`,
			config: true,
		},
		{
			name: "full bandwidth on linear axes",
			body: `pulsars: [{name: a, scatteringTime: 0, weff: 100, sweep: {log: false, step: 0.1, fullBandwidth: true}}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)

			var configErr *noise.ConfigError
			assert.Equal(t, tt.config, errors.As(err, &configErr))
		})
	}
}

func TestConfig_NeedsScatteringTable(t *testing.T) {
	path := writeConfig(t, `
scatteringTable: ampratios.yaml
pulsars:
  - name: a
    scatteringTime: 0
    weff: 100
  - name: b
    scatteringTime: 0.5
    weff: 100
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, config.NeedsScatteringTable())
}
