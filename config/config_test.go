package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chzchzchz/freedvrx/freedv"
	"github.com/chzchzchz/freedvrx/radio"
)

func writeConfig(t *testing.T, s string) string {
	p := filepath.Join(t.TempDir(), "freedvrx.yaml")
	require.NoError(t, os.WriteFile(p, []byte(s), 0644))
	return p
}

func TestDefaultsValid(t *testing.T) {
	c := New()
	require.NoError(t, c.Validate())
	assert.Equal(t, freedv.Mode2400A, c.Demod.Mode)
	assert.Equal(t, time.Second, c.ReportInterval)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, `
input:
  path: rtl://0
  format: u8
  sample_rate: 240000
  center_hz: 14200000
channel_hz: 14236000
demod:
  mode: 700D
  agc: true
  dsb: true
output:
  kind: oto
report_interval: 2s
`))
	require.NoError(t, err)
	assert.Equal(t, "rtl://0", c.Input.Path)
	assert.Equal(t, freedv.Mode700D, c.Demod.Mode)
	assert.True(t, c.Demod.AGC)
	assert.True(t, c.Demod.DSB)
	// untouched keys keep defaults
	assert.Equal(t, 3.0, c.Demod.Volume)
	assert.Equal(t, 7, c.Demod.AGCTimeLog2)
	assert.Equal(t, 2*time.Second, c.ReportInterval)

	band := radio.HzBand{Center: 14200000, Width: 240000}
	assert.Equal(t, int64(36000), c.Settings(band).InputFrequencyOffset)
	assert.Equal(t, uint64(14236000), c.ChannelFrequency(band))
}

func TestLoadRejects(t *testing.T) {
	for _, tt := range []struct {
		name string
		yaml string
	}{
		{"unknown key", "colour: blue\n"},
		{"bad mode", "demod:\n  mode: 9600Z\n"},
		{"bad format", "input:\n  format: f32\n"},
		{"bad output", "output:\n  kind: alsa\n"},
		{"wav without path", "output:\n  kind: wav\n"},
		{"negative volume", "demod:\n  volume: -1\n"},
		{"negative agc time", "demod:\n  agc_time_log2: -1\n"},
		{"huge agc time", "demod:\n  agc_time_log2: 40\n"},
		{"negative gate", "demod:\n  agc_threshold_gate: -3\n"},
		{"zero span", "demod:\n  span_log2: 0\n"},
		{"wide span", "demod:\n  span_log2: 9\n"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.ErrorIs(t, err, ErrBadConfig)
		})
	}
}
