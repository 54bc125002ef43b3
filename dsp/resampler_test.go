package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpSampleFanOut(t *testing.T) {
	r := NewAudioResampler()
	r.SetDecimation(6)
	r.SetAudioFilter(48000, 250, 3300, 1)
	outs := 0
	for i := 0; i < 100; i++ {
		pending := 0
		for {
			_, ok := r.UpSample(int16(i))
			pending++
			if ok {
				break
			}
			require.Less(t, pending, 6)
		}
		require.Equal(t, 6, pending)
		outs += pending
	}
	assert.Equal(t, 600, outs)
}

func TestUpSampleVoiceBand(t *testing.T) {
	r := NewAudioResampler()
	r.SetDecimation(6)
	r.SetAudioFilter(48000, 250, 3300, 1)

	var out []float64
	for i := 0; i < 8000; i++ {
		in := int16(8000 * math.Sin(2*math.Pi*1000*float64(i)/8000))
		for {
			v, ok := r.UpSample(in)
			out = append(out, float64(v))
			if ok {
				break
			}
		}
	}
	require.Len(t, out, 48000)

	sum := 0.0
	for _, v := range out[4800:] {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(out)-4800))
	assert.InDelta(t, 8000/math.Sqrt2, rms, 0.1*8000/math.Sqrt2)
}

func TestSaturate16(t *testing.T) {
	assert.Equal(t, int16(math.MaxInt16), Saturate16(1e9))
	assert.Equal(t, int16(math.MinInt16), Saturate16(-1e9))
	assert.Equal(t, int16(-12), Saturate16(-12.7))
}

// tone returns the amplitude of the hz component of x sampled at fs.
func toneAmplitude(x []float64, hz, fs float64) float64 {
	var re, im float64
	for i, v := range x {
		ph := 2 * math.Pi * hz * float64(i) / fs
		re += v * math.Cos(ph)
		im += v * math.Sin(ph)
	}
	return 2 * math.Hypot(re, im) / float64(len(x))
}

func TestUpSampleRejectsImages(t *testing.T) {
	r := NewAudioResampler()
	r.SetDecimation(6)
	r.SetAudioFilter(48000, 250, 3300, 1)

	var out []float64
	for i := 0; i < 8000; i++ {
		in := int16(8000 * math.Sin(2*math.Pi*1000*float64(i)/8000))
		for {
			v, ok := r.UpSample(in)
			out = append(out, float64(v))
			if ok {
				break
			}
		}
	}
	out = out[4800:]
	want := toneAmplitude(out, 1000, 48000)
	assert.InDelta(t, 8000, want, 800)
	// zero stuffing mirrors 1 kHz around multiples of 8 kHz
	for _, hz := range []float64{7000, 9000, 15000, 17000} {
		assert.Less(t, toneAmplitude(out, hz, 48000), want/100, "image at %v Hz", hz)
	}
}

func TestBandpassTapsCenterGain(t *testing.T) {
	h := bandpassTaps(193, 250.0/48000, 3300.0/48000)
	var re, im float64
	w := 2 * math.Pi * 1775.0 / 48000
	for n, v := range h {
		re += float64(v) * math.Cos(w*float64(n))
		im -= float64(v) * math.Sin(w*float64(n))
	}
	assert.InDelta(t, 1.0, math.Hypot(re, im), 0.02)
}
