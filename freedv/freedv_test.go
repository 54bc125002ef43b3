package freedv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestModeTable(t *testing.T) {
	assert.Equal(t, 48000, Mode2400A.ModemSampleRate())
	assert.Equal(t, 6000.0, Mode2400A.HighCutoff())
	assert.Equal(t, 0.0, Mode2400A.LowCutoff())
	assert.Equal(t, 400.0, Mode800XA.LowCutoff())
	for _, m := range []Mode{Mode1600, Mode700C, Mode700D} {
		assert.Equal(t, 8000, m.ModemSampleRate(), m.String())
		assert.Equal(t, 600.0, m.LowCutoff(), m.String())
		assert.Equal(t, 2400.0, m.HighCutoff(), m.String())
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseMode(" 700d ")
	require.NoError(t, err)
	assert.Equal(t, Mode700D, got)

	_, err = ParseMode("700E")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.False(t, Mode(42).Valid())
	assert.Equal(t, "Mode(42)", Mode(42).String())
}

func TestModeYAML(t *testing.T) {
	var v struct {
		Mode Mode `yaml:"mode"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("mode: 800XA\n"), &v))
	assert.Equal(t, Mode800XA, v.Mode)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "mode: 800XA\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("mode: bogus\n"), &v))
}
