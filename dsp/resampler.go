package dsp

import "math"

// AudioResampler up-samples 16-bit audio by an integer factor through a
// band-pass FIR running at the output rate.
type AudioResampler struct {
	decimation int
	count      int
	gain       float64
	fir        *upFilter
	pending    []float32
}

func NewAudioResampler() *AudioResampler {
	r := &AudioResampler{}
	r.SetDecimation(1)
	r.SetAudioFilter(8000, 250, 3300, 1)
	return r
}

// SetDecimation sets the number of output samples per input sample.
func (r *AudioResampler) SetDecimation(n int) {
	if n < 1 {
		n = 1
	}
	r.decimation, r.count = n, 0
}

func (r *AudioResampler) Decimation() int { return r.decimation }

// SetAudioFilter designs the output band-pass at sampleRate.
func (r *AudioResampler) SetAudioFilter(sampleRate int, lowHz, highHz, gain float64) {
	fs := float64(sampleRate)
	if highHz > fs/2 {
		highHz = fs / 2
	}
	taps := bandpassTaps(32*r.decimation+1, lowHz/fs, highHz/fs)
	r.fir, r.gain, r.count = newUpFilter(taps), gain, 0
}

// UpSample produces the next output sample for in. It returns false while
// more output samples for the same input are pending; the caller repeats
// the call with the same input until it returns true.
func (r *AudioResampler) UpSample(in int16) (int16, bool) {
	if r.count == 0 {
		r.pending = r.fir.run(float32(in)*float32(r.decimation), r.decimation)
	}
	out := Saturate16(float64(r.pending[r.count]) * r.gain)
	if r.count++; r.count >= r.decimation {
		r.count = 0
		return out, true
	}
	return out, false
}

// Saturate16 converts v to int16, clamping at the type limits.
func Saturate16(v float64) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
