package spectrum

import (
	"bytes"
	"image/jpeg"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func tone(n, bins, bin int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		ph := 2 * math.Pi * float64(bin) * float64(i) / float64(bins)
		out[i] = complex(float32(math.Cos(ph)), float32(math.Sin(ph)))
	}
	return out
}

func TestScopeFindsTone(t *testing.T) {
	s := NewScope(Config{Bins: 64, Average: 2, Lines: 4})
	samples := tone(64*10, 64, 8)
	// feed in ragged blocks
	for len(samples) > 0 {
		n := min(37, len(samples))
		s.Feed(samples[:n])
		samples = samples[n:]
	}
	assert.Equal(t, 10, s.Frames())
	assert.Equal(t, 640, s.Samples())

	bin, level := s.PeakBin()
	assert.Equal(t, 32+8, bin)
	assert.InDelta(t, 0, level, 0.1)
	assert.Less(t, s.NoiseFloor(), -60.0)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJPEG(&buf))
	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestScopeEmpty(t *testing.T) {
	s := NewScope(Config{})
	bin, _ := s.PeakBin()
	assert.Equal(t, -1, bin)
	assert.True(t, math.IsInf(s.NoiseFloor(), -1))
	assert.Equal(t, 1, s.Waterfall().Bounds().Dy())
}

func TestScopeFrameCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bins := rapid.SampledFrom([]int{8, 16, 32}).Draw(t, "bins")
		s := NewScope(Config{Bins: bins, Average: 1, Lines: 2})
		total := 0
		for _, n := range rapid.SliceOfN(rapid.IntRange(0, 50), 1, 20).Draw(t, "blocks") {
			s.Feed(make([]complex64, n))
			total += n
		}
		if s.Frames() != total/bins {
			t.Fatalf("frames %d, want %d", s.Frames(), total/bins)
		}
		if len(s.Average()) != 0 && len(s.Average()) != bins {
			t.Fatalf("average len %d", len(s.Average()))
		}
	})
}
