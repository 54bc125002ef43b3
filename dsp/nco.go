package dsp

import "math"

const twoPi = 2 * math.Pi

// NCO is a numerically controlled oscillator. Each NextIQ returns
// exp(j*phase) and advances the phase by one step.
type NCO struct {
	phase float64
	step  float64
}

// SetFreq sets the oscillator frequency in Hz for the given sample rate.
// Negative frequencies are allowed.
func (n *NCO) SetFreq(freq, sampleRate float64) {
	if sampleRate <= 0 {
		n.step = 0
		return
	}
	step := math.Mod(twoPi*freq/sampleRate, twoPi)
	if step < 0 {
		step += twoPi
	}
	n.step = step
}

func (n *NCO) NextIQ() complex64 {
	s, c := math.Sincos(n.phase)
	n.phase += n.step
	// step is in [0, 2pi) so one subtraction always lands back in range.
	if n.phase >= twoPi {
		n.phase -= twoPi
	}
	return complex(float32(c), float32(s))
}

func (n *NCO) Phase() float64 { return n.phase }

func (n *NCO) Step() float64 { return n.step }
