package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testTarget = 3276.8

// squelch runs one sample through the gain and delay line the way the
// demodulator does and reports whether the delayed sample is live.
type squelch struct {
	agc *MagAGC
	dl  *DelayLine
}

func newSquelch(n int, threshold float64, gate int) *squelch {
	agc := NewMagAGC(n, testTarget, threshold)
	agc.Resize(n, n/2, testTarget)
	agc.SetStepDownDelay(n)
	agc.SetGate(gate)
	return &squelch{agc: agc, dl: NewDelayLine(n)}
}

func (s *squelch) step(x complex64) bool {
	g := s.agc.FeedAndGetValue(x)
	delayed := s.dl.ReadBack(s.agc.StepDownDelay())
	s.dl.Write(x * complex(float32(g), 0))
	return real(delayed) != 0
}

func TestAGCConverges(t *testing.T) {
	const n = 1024
	agc := NewMagAGC(n, testTarget, 0)
	agc.Resize(n, n/2, testTarget)
	agc.SetThresholdEnable(false)
	for i := 0; i < 4*n; i++ {
		g := agc.FeedAndGetValue(complex(1000, 0))
		if i >= n {
			require.InDelta(t, testTarget/1000, g, 1e-9, "sample %d", i)
		}
	}
	assert.Equal(t, 1.0, agc.StepValue())
}

func TestAGCClamping(t *testing.T) {
	const n = 256
	agc := NewMagAGC(n, testTarget, 0)
	agc.SetThresholdEnable(false)
	agc.SetClamping(true)
	agc.SetClampMax(FullScale / 100)
	for i := 0; i < 2*n; i++ {
		g := agc.FeedAndGetValue(complex(10, 0))
		require.LessOrEqual(t, g*10, FullScale/100+1e-9)
	}
}

func TestSquelchLagsByStepDownDelay(t *testing.T) {
	const n, t1, t2 = 256, 1000, 4000
	s := newSquelch(n, 100, 0)
	for i := 0; i < 7000; i++ {
		x := complex64(0)
		if i >= t1 && i < t2 {
			x = complex(1000, 0)
		}
		want := i >= t1+n && i < t2+n
		require.Equal(t, want, s.step(x), "sample %d", i)
	}
}

func TestSquelchGate(t *testing.T) {
	const n, t1, gate = 256, 500, 10
	s := newSquelch(n, 100, gate)
	for i := 0; i < 2000; i++ {
		x := complex64(0)
		if i >= t1 {
			x = complex(1000, 0)
		}
		require.Equal(t, i >= t1+gate+n, s.step(x), "sample %d", i)
	}
}

func TestSquelchClosesBelowThreshold(t *testing.T) {
	const n, t1 = 256, 2000
	s := newSquelch(n, 100, 0)
	for i := 0; i < t1; i++ {
		s.step(complex(1000, 0))
	}
	for i := 0; i < 3*n; i++ {
		active := s.step(complex(1, 0))
		if i < n {
			require.True(t, active, "closed early at %d", i)
		}
		if i >= 2*n {
			require.False(t, active, "still open at %d", i)
		}
	}
}

func TestDelayLineReadBack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 512).Draw(t, "size")
		writes := rapid.IntRange(size, 4*size).Draw(t, "writes")
		back := rapid.IntRange(1, size).Draw(t, "back")
		dl := NewDelayLine(size)
		for i := 0; i < writes; i++ {
			dl.Write(complex(float32(i), 0))
		}
		if got, want := real(dl.ReadBack(back)), float32(writes-back); got != want {
			t.Fatalf("ReadBack(%d) = %v, want %v", back, got, want)
		}
	})
}

func TestDelayLinePanicsPastLength(t *testing.T) {
	dl := NewDelayLine(8)
	assert.Panics(t, func() { dl.ReadBack(9) })
}
