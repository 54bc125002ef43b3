package dsp

import "math"

// MovingAverage keeps the running mean of the last n values.
type MovingAverage struct {
	history []float64
	ptr     int
	sum     float64
}

func (m *MovingAverage) Resize(n int, init float64) {
	if n < 1 {
		n = 1
	}
	m.history = make([]float64, n)
	m.Fill(init)
}

func (m *MovingAverage) Fill(v float64) {
	for i := range m.history {
		m.history[i] = v
	}
	m.sum, m.ptr = v*float64(len(m.history)), 0
}

func (m *MovingAverage) Feed(v float64) {
	m.sum += v - m.history[m.ptr]
	m.history[m.ptr] = v
	if m.ptr++; m.ptr == len(m.history) {
		m.ptr = 0
	}
}

func (m *MovingAverage) Average() float64 { return m.sum / float64(len(m.history)) }

func (m *MovingAverage) Len() int { return len(m.history) }

// MagAGC is a magnitude AGC with an optional power-threshold squelch. While
// the squelch is closed the returned gain is zero, which downstream turns
// into exact zero samples.
//
// Opening needs gate consecutive samples above threshold. Once the input
// drops below threshold the gain holds for stepDownDelay samples before
// closing. StepValue ramps 0..1 over stepLength samples on open and back
// down on close.
type MagAGC struct {
	avg MovingAverage
	r2  float64
	u0  float64

	magsq           float64
	threshold       float64
	thresholdEnable bool
	gate            int
	gateCounter     int
	stepDownDelay   int
	count           int

	stepLength      int
	stepUpCounter   int
	stepDownCounter int

	clamping bool
	clampMax float64
}

func NewMagAGC(historySize int, target, threshold float64) *MagAGC {
	a := &MagAGC{
		threshold:       threshold,
		thresholdEnable: true,
		clampMax:        1.0,
	}
	a.Resize(historySize, min(2400, historySize/2), target)
	a.stepDownDelay = historySize
	return a
}

// Resize changes the averaging window and step ramp length and resets the
// ramp. The caller keeps the step-down delay and any delay line in step.
func (a *MagAGC) Resize(historySize, stepLength int, target float64) {
	if stepLength < 1 {
		stepLength = 1
	}
	a.r2 = target * target
	a.stepLength = stepLength
	a.stepUpCounter, a.stepDownCounter = 0, 0
	a.avg.Resize(historySize, 0)
}

func (a *MagAGC) FeedAndGetValue(ci complex64) float64 {
	re, im := float64(real(ci)), float64(imag(ci))
	a.magsq = re*re + im*im
	a.avg.Feed(a.magsq)

	a.u0 = 0
	if avg := a.avg.Average(); avg > 0 {
		a.u0 = math.Sqrt(a.r2 / avg)
	}
	if a.clamping && a.magsq > 0 {
		if mag := math.Sqrt(a.magsq); a.u0*mag > a.clampMax {
			a.u0 = a.clampMax / mag
		}
	}
	if !a.thresholdEnable {
		return a.u0
	}

	open := false
	if a.magsq > a.threshold {
		if a.gateCounter < a.gate {
			a.gateCounter++
		} else {
			open = true
		}
	} else {
		a.gateCounter = 0
	}

	if open {
		a.count = a.stepDownDelay
	} else if a.count > 0 {
		a.count--
	}

	if a.count > 0 {
		if a.stepUpCounter < a.stepLength {
			a.stepUpCounter++
		}
		a.stepDownCounter = a.stepUpCounter
		return a.u0
	}
	if a.stepDownCounter > 0 {
		a.stepDownCounter--
	}
	a.stepUpCounter = a.stepDownCounter
	return 0
}

// StepValue is the squelch ramp in [0, 1]; 1 when thresholding is off.
func (a *MagAGC) StepValue() float64 {
	if !a.thresholdEnable {
		return 1
	}
	if a.count > 0 {
		return float64(a.stepUpCounter) / float64(a.stepLength)
	}
	return float64(a.stepDownCounter) / float64(a.stepLength)
}

func (a *MagAGC) Open() bool { return !a.thresholdEnable || a.count > 0 }

func (a *MagAGC) HistorySize() int { return a.avg.Len() }

func (a *MagAGC) StepDownDelay() int { return a.stepDownDelay }

func (a *MagAGC) SetStepDownDelay(n int) {
	a.stepDownDelay = n
	if a.count > n {
		a.count = n
	}
}

func (a *MagAGC) SetThreshold(t float64) { a.threshold = t }

func (a *MagAGC) SetThresholdEnable(v bool) { a.thresholdEnable = v }

func (a *MagAGC) SetGate(n int) {
	a.gate = n
	a.gateCounter = 0
}

func (a *MagAGC) SetClamping(v bool) { a.clamping = v }

func (a *MagAGC) SetClampMax(v float64) { a.clampMax = v }

// DelayLine is a ring of complex samples. ReadBack(n) returns the sample
// written n writes ago and must be called before the current Write.
type DelayLine struct {
	buf []complex64
	ptr int
}

func NewDelayLine(n int) *DelayLine {
	d := &DelayLine{}
	d.Resize(n)
	return d
}

// Resize drops the history; the line reads as zeros until refilled.
func (d *DelayLine) Resize(n int) {
	if n < 1 {
		n = 1
	}
	d.buf, d.ptr = make([]complex64, n), 0
}

func (d *DelayLine) Len() int { return len(d.buf) }

func (d *DelayLine) Write(c complex64) {
	d.buf[d.ptr] = c
	if d.ptr++; d.ptr == len(d.buf) {
		d.ptr = 0
	}
}

func (d *DelayLine) ReadBack(n int) complex64 {
	if n > len(d.buf) || n < 1 {
		panic("delay line read outside its length")
	}
	i := d.ptr - n
	if i < 0 {
		i += len(d.buf)
	}
	return d.buf[i]
}
