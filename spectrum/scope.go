// Package spectrum turns the filtered channel tap into an averaged power
// spectrum and a waterfall.
package spectrum

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"math/cmplx"
	"sort"
	"sync"

	"github.com/runningwild/go-fftw/fftw32"
)

// black, green, yellow, white
var colorScale = []color.NRGBA{
	{0, 0, 0, 255},
	{0, 255, 0, 255},
	{255, 255, 0, 255},
	{255, 255, 255, 255},
}

func interpolate(t float64, a, b uint8) uint8 { return uint8(float64(a)*(1-t) + float64(b)*t) }

func bin2Color(v float64) color.NRGBA {
	v = math.Max(0, math.Min(v, 0.999))
	idx := float64(len(colorScale)-1) * v
	t := idx - float64(int(idx))
	prev, next := colorScale[int(idx)], colorScale[int(idx)+1]
	return color.NRGBA{
		interpolate(t, prev.R, next.R),
		interpolate(t, prev.G, next.G),
		interpolate(t, prev.B, next.B),
		255,
	}
}

type Config struct {
	// Bins is the FFT length.
	Bins int
	// Average is how many FFT frames go into one averaged line.
	Average int
	// Lines is the waterfall depth.
	Lines int
}

func DefaultConfig() Config { return Config{Bins: 256, Average: 4, Lines: 128} }

// Scope accumulates fed samples into FFT frames. Feed never blocks on
// readers for longer than a copy.
type Scope struct {
	cfg Config

	mu      sync.Mutex
	in      *fftw32.Array
	fill    int
	acc     []float64
	accN    int
	avg     []float64
	lines   [][]float64
	frames  int
	samples int
}

func NewScope(cfg Config) *Scope {
	if cfg.Bins <= 0 {
		cfg.Bins = DefaultConfig().Bins
	}
	cfg.Average = max(1, cfg.Average)
	cfg.Lines = max(1, cfg.Lines)
	return &Scope{
		cfg: cfg,
		in:  fftw32.NewArray(cfg.Bins),
		acc: make([]float64, cfg.Bins),
	}
}

func (s *Scope) Feed(samples []complex64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples += len(samples)
	for len(samples) > 0 {
		c := copy(s.in.Elems[s.fill:], samples)
		s.fill += c
		samples = samples[c:]
		if s.fill == s.cfg.Bins {
			s.frame()
			s.fill = 0
		}
	}
}

func (s *Scope) frame() {
	bins := s.cfg.Bins
	out := fftw32.FFT(s.in)
	for i, v := range out.Elems {
		// lowest frequency first
		idx := (i + bins/2) % bins
		p := cmplx.Abs(complex128(v)) / float64(bins)
		s.acc[idx] += 20 * math.Log10(p+1e-12)
	}
	s.frames++
	if s.accN++; s.accN < s.cfg.Average {
		return
	}
	line := make([]float64, bins)
	for i := range s.acc {
		line[i] = s.acc[i] / float64(s.accN)
		s.acc[i] = 0
	}
	s.accN = 0
	s.avg = line
	if len(s.lines) == s.cfg.Lines {
		s.lines = append(s.lines[:0], s.lines[1:]...)
	}
	s.lines = append(s.lines, line)
}

// Average is the last averaged line in dB, lowest frequency first.
func (s *Scope) Average() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.avg...)
}

// NoiseFloor is the median bin of the last averaged line.
func (s *Scope) NoiseFloor() float64 {
	avg := s.Average()
	if len(avg) == 0 {
		return math.Inf(-1)
	}
	sort.Float64s(avg)
	return avg[len(avg)/2]
}

// PeakBin is the index and level of the strongest bin of the last line.
func (s *Scope) PeakBin() (int, float64) {
	avg := s.Average()
	if len(avg) == 0 {
		return -1, math.Inf(-1)
	}
	best := 0
	for i, v := range avg {
		if v > avg[best] {
			best = i
		}
	}
	return best, avg[best]
}

// Frames is the number of FFT frames computed so far.
func (s *Scope) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Scope) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Waterfall renders the retained lines, oldest on top.
func (s *Scope) Waterfall() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := image.NewNRGBA(image.Rect(0, 0, s.cfg.Bins, max(1, len(s.lines))))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range s.lines {
		for _, v := range l {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	// scale to [0, 1)
	scale := 1.0 / ((hi - lo) + 0.001)
	for y, l := range s.lines {
		for x, v := range l {
			val := scale * (v - lo)
			img.SetNRGBA(x, y, bin2Color(val*val))
		}
	}
	return img
}

func (s *Scope) WriteJPEG(w io.Writer) error {
	return jpeg.Encode(w, s.Waterfall(), nil)
}
